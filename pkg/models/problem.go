package models

// APIProblem represents an RFC 7807 Problem Details response for Swagger docs.
// This type is used only in swagger annotations to describe error responses.
type APIProblem struct {
	Type     string `json:"type" example:"https://havenwatch.dev/problems/forbidden"`
	Title    string `json:"title" example:"Forbidden"`
	Status   int    `json:"status" example:"403"`
	Detail   string `json:"detail,omitempty" example:"not permitted to edit resident 7"`
	Instance string `json:"instance,omitempty" example:"/api/v1/residents/7"`
}
