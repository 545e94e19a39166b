package residents

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/havenwatch/internal/auth"
	"github.com/HerbHall/havenwatch/internal/store"
	"github.com/HerbHall/havenwatch/internal/testutil"
	"github.com/HerbHall/havenwatch/pkg/models"
)

type testEnv struct {
	db        *store.SQLiteStore
	residents *Store
	users     *auth.UserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	ctx := context.Background()

	users, err := auth.NewUserStore(ctx, db)
	if err != nil {
		t.Fatalf("NewUserStore: %v", err)
	}
	rs, err := NewStore(ctx, db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return &testEnv{db: db, residents: rs, users: users}
}

func (e *testEnv) addUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	u := testutil.NewUser(role)
	if err := e.users.Insert(context.Background(), &u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return &u
}

func (e *testEnv) addResident(t *testing.T, first, last string) *models.Resident {
	t.Helper()
	r := testutil.NewResident(testutil.WithName(first, last))
	if err := e.residents.Insert(context.Background(), &r); err != nil {
		t.Fatalf("insert resident: %v", err)
	}
	return &r
}

func TestStore_InsertAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	r := env.addResident(t, "Margaret", "Hale")
	if r.ID == 0 {
		t.Fatal("expected ID to be set")
	}

	got, err := env.residents.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FullName() != "Margaret Hale" {
		t.Errorf("FullName = %q, want %q", got.FullName(), "Margaret Hale")
	}
	if got.Gender != models.GenderFemale {
		t.Errorf("Gender = %q, want FEMALE", got.Gender)
	}
	if !got.DateOfBirth.Equal(r.DateOfBirth) {
		t.Errorf("DateOfBirth = %v, want %v", got.DateOfBirth, r.DateOfBirth)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.residents.Get(context.Background(), 999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ListOrderedByName(t *testing.T) {
	env := newTestEnv(t)
	env.addResident(t, "Walter", "Young")
	env.addResident(t, "Margaret", "Hale")
	env.addResident(t, "Alice", "Hale")

	list, err := env.residents.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Alice Hale", "Margaret Hale", "Walter Young"}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, name := range want {
		if list[i].FullName() != name {
			t.Errorf("list[%d] = %q, want %q", i, list[i].FullName(), name)
		}
	}
}

func TestStore_Assignments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fam := env.addUser(t, models.RoleFamily)
	r := env.addResident(t, "Margaret", "Hale")
	env.addResident(t, "Walter", "Young")

	list, err := env.residents.ListByUser(ctx, fam.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("before assign len = %d, want 0", len(list))
	}

	if err := env.residents.Assign(ctx, r.ID, fam.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := env.residents.Assign(ctx, r.ID, fam.ID); err != nil {
		t.Fatalf("second Assign: %v", err)
	}

	ok, err := env.residents.HasAccess(ctx, fam.ID, r.ID)
	if err != nil || !ok {
		t.Errorf("HasAccess = %v, %v; want true", ok, err)
	}
	list, _ = env.residents.ListByUser(ctx, fam.ID)
	if len(list) != 1 || list[0].ID != r.ID {
		t.Errorf("ListByUser = %+v, want only resident %d", list, r.ID)
	}

	team, err := env.residents.UsersWithAccess(ctx, r.ID)
	if err != nil {
		t.Fatalf("UsersWithAccess: %v", err)
	}
	if len(team) != 1 || team[0].ID != fam.ID {
		t.Errorf("UsersWithAccess = %+v", team)
	}
	if team[0].PasswordHash != "" {
		t.Error("care team query returned password hash")
	}

	if err := env.residents.Unassign(ctx, r.ID, fam.ID); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	ok, _ = env.residents.HasAccess(ctx, fam.ID, r.ID)
	if ok {
		t.Error("HasAccess = true after Unassign")
	}
	if err := env.residents.Unassign(ctx, r.ID, fam.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Unassign err = %v, want ErrNotFound", err)
	}
}

func TestStore_AssignUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	r := env.addResident(t, "Margaret", "Hale")

	err := env.residents.Assign(context.Background(), r.ID, 4242)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestStore_InsertAssigned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cg := env.addUser(t, models.RoleCaregiver)

	r := testutil.NewResident()
	if err := env.residents.InsertAssigned(ctx, &r, cg.ID); err != nil {
		t.Fatalf("InsertAssigned: %v", err)
	}
	ok, err := env.residents.HasAccess(ctx, cg.ID, r.ID)
	if err != nil || !ok {
		t.Errorf("HasAccess = %v, %v; want true", ok, err)
	}

	orphan := testutil.NewResident()
	if err := env.residents.InsertAssigned(ctx, &orphan, 4242); err == nil {
		t.Fatal("InsertAssigned with unknown user should fail")
	}
	if orphan.ID != 0 {
		t.Errorf("ID = %d after rollback, want 0", orphan.ID)
	}
	if n, _ := env.residents.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestStore_DeleteCascadesAssignments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cg := env.addUser(t, models.RoleCaregiver)
	r := env.addResident(t, "Margaret", "Hale")
	if err := env.residents.Assign(ctx, r.ID, cg.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	if err := env.residents.Delete(ctx, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var n int
	if err := env.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resident_access WHERE resident_id = ?`, r.ID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("assignment rows after delete = %d, want 0", n)
	}
	if err := env.residents.Delete(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteUserCascadesAssignments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cg := env.addUser(t, models.RoleCaregiver)
	r := env.addResident(t, "Margaret", "Hale")
	_ = env.residents.Assign(ctx, r.ID, cg.ID)

	if err := env.users.Delete(ctx, cg.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	team, err := env.residents.UsersWithAccess(ctx, r.ID)
	if err != nil {
		t.Fatalf("UsersWithAccess: %v", err)
	}
	if len(team) != 0 {
		t.Errorf("care team after user delete = %d, want 0", len(team))
	}
}

func TestStore_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.addResident(t, "Margaret", "Hale")

	r.Medications = "Lisinopril 10mg"
	r.Allergies = "Penicillin"
	if err := env.residents.Update(ctx, r); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := env.residents.Get(ctx, r.ID)
	if got.Medications != "Lisinopril 10mg" || got.Allergies != "Penicillin" {
		t.Errorf("after update = %+v", got)
	}

	missing := *r
	missing.ID = 999
	if err := env.residents.Update(ctx, &missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}
