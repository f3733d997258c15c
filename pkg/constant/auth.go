package constant

const (
	ALREADY_EXISTS      = "%s already exists"
	CREATED             = "%s created successfully"
	INVALID_REQUEST     = "Invalid request payload"
	CANT_FIND           = "%s not found"
	INVALID_CREDENTIALS = "invalid email address or password"
	UNAUTHORIZED_ACCESS = "Unauthorized access"

	SOMETHING_WENT_WRONG = "something went wrong"
)
