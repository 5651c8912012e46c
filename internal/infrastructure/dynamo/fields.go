package dynamo

// DynamoDB attribute names. "name" and "status" are reserved words and only
// ever reach an expression through #fN aliases.
const (
	fieldUserID     = "userId"
	fieldEmail      = "email"
	fieldOTP        = "otp"
	fieldDeviceID   = "deviceId"
	fieldPassword   = "password"
	fieldName       = "name"
	fieldProjects   = "projects"
	fieldStatus     = "status"
	fieldExpiration = "expiration"
)
