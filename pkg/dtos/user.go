package dtos

// DTO for user registration. Signup creates the workspace too, so the first
// user of a team names it here.
type DTOForUserCreate struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	Name          string `json:"name" binding:"required"`
	WorkspaceName string `json:"workspace_name" binding:"required"`
}

// DTO for user login
type DTOForUserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
