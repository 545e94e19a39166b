package access

import "github.com/HerbHall/havenwatch/pkg/models"

// Action is an operation gated by role.
type Action string

const (
	ViewResident     Action = "resident.view"
	CreateResident   Action = "resident.create"
	EditResident     Action = "resident.edit"
	DeleteResident   Action = "resident.delete"
	ManageUsers      Action = "users.manage"
	AssignResidents  Action = "residents.assign"
	ManageAlert      Action = "alert.manage"
	ViewReadings     Action = "readings.view"
	TriggerSimulator Action = "simulation.trigger"
)

// Scope is how far a role's permission for an action reaches.
type Scope int

const (
	// ScopeNone denies the action.
	ScopeNone Scope = iota
	// ScopeAssigned allows the action on residents assigned to the caller.
	ScopeAssigned
	// ScopeAny allows the action on every resident.
	ScopeAny
)

func (s Scope) String() string {
	switch s {
	case ScopeAssigned:
		return "assigned"
	case ScopeAny:
		return "any"
	default:
		return "none"
	}
}

// permissions is the single source of truth for role authorization.
// Missing entries are ScopeNone.
var permissions = map[models.Role]map[Action]Scope{
	models.RoleAdmin: {
		ViewResident:     ScopeAny,
		CreateResident:   ScopeAny,
		EditResident:     ScopeAny,
		DeleteResident:   ScopeAny,
		ManageUsers:      ScopeAny,
		AssignResidents:  ScopeAny,
		ManageAlert:      ScopeAny,
		ViewReadings:     ScopeAny,
		TriggerSimulator: ScopeAny,
	},
	models.RoleCaregiver: {
		ViewResident:     ScopeAssigned,
		CreateResident:   ScopeAny,
		EditResident:     ScopeAssigned,
		ManageAlert:      ScopeAssigned,
		ViewReadings:     ScopeAssigned,
		TriggerSimulator: ScopeAny,
	},
	models.RoleHealthcare: {
		ViewResident:     ScopeAssigned,
		EditResident:     ScopeAssigned,
		ManageAlert:      ScopeAssigned,
		ViewReadings:     ScopeAssigned,
		TriggerSimulator: ScopeAny,
	},
	models.RoleFamily: {
		ViewResident: ScopeAssigned,
		ManageAlert:  ScopeAssigned,
		ViewReadings: ScopeAssigned,
	},
}

// ScopeFor returns the scope role holds for action.
func ScopeFor(role models.Role, action Action) Scope {
	return permissions[role][action]
}
