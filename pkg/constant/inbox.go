package constant

const (
	DELETED         = "%s deleted successfully"
	UPDATED         = "%s updated successfully"
	SEND_FAILED     = "message could not be delivered"
	INVALID_CHANNEL = "unsupported channel type"
	MISSING_FIELD   = "%s is required for this channel type"
)
