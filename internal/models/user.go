package models

// User is an account holder. The id equals the de-namespaced subject issued
// by the identity provider. Created lazily on first profile access.
type User struct {
	ID        string `json:"id" dynamodbav:"id"`
	CreatedAt int64  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// ApplicationUser links a user to an application it is a member of.
type ApplicationUser struct {
	ApplicationID string `json:"applicationId" dynamodbav:"applicationId"`
	UserID        string `json:"userId" dynamodbav:"userId"`
	CreatedAt     int64  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// ApplicationRef is the minimal application view returned inside a profile.
type ApplicationRef struct {
	ID string `json:"id"`
}

// Profile joins the user record with the applications it belongs to.
type Profile struct {
	User         User             `json:"user"`
	Applications []ApplicationRef `json:"applications"`
}
