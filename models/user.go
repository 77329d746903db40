package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FirstName            string             `json:"firstName" bson:"firstName"`
	LastName             string             `json:"lastName" bson:"lastName"`
	Username             string             `json:"username" bson:"username"`
	Email                string             `json:"email" bson:"email"`
	Password             string             `json:"-" bson:"password"`
	ResetPasswordToken   string             `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time         `json:"-" bson:"resetPasswordExpires,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// FullName is what the frontend shows in the navbar greeting.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// PublicUser is the user shape returned from auth endpoints. The password
// hash and reset token never leave the service.
type PublicUser struct {
	ID        primitive.ObjectID `json:"id"`
	FirstName string             `json:"firstName"`
	LastName  string             `json:"lastName"`
	Name      string             `json:"name"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.FullName(),
		Username:  u.Username,
		Email:     u.Email,
	}
}
