package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/savepoint/savepoint/lib/errs"
)

// validate is the shared request validator. Struct tags describe the shape of
// each payload; anything beyond shape (enum membership, date semantics) is the
// services' job.
var validate = validator.New()

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type confirmEmailRequest struct {
	Token string `json:"token" validate:"required,len=6"`
}

type updateUserRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewUsername     string `json:"new_username" validate:"omitempty,min=2,max=30"`
	NewEmail        string `json:"new_email" validate:"omitempty,email"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type createHabitRequest struct {
	Title     string `json:"title" validate:"required,max=100"`
	Category  string `json:"category" validate:"required"`
	Frequency string `json:"frequency" validate:"omitempty"`
	Icon      string `json:"icon" validate:"omitempty,max=50"`
	Order     int    `json:"order" validate:"gte=0"`
}

type updateHabitRequest struct {
	Title     *string `json:"title" validate:"omitempty,min=1,max=100"`
	Category  *string `json:"category"`
	Frequency *string `json:"frequency"`
	Icon      *string `json:"icon" validate:"omitempty,max=50"`
	Order     *int    `json:"order" validate:"omitempty,gte=0"`
	IsActive  *bool   `json:"is_active"`
}

type completeHabitRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note string `json:"note" validate:"omitempty,max=200"`
	Mood string `json:"mood" validate:"omitempty"`
}

type createTaskRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description" validate:"omitempty,max=2000"`
	Priority      string     `json:"priority" validate:"omitempty"`
	Category      string     `json:"category" validate:"omitempty"`
	DueDate       *time.Time `json:"due_date"`
	EstimatedTime int        `json:"estimated_time" validate:"gte=0"`
	Subtasks      []string   `json:"subtasks" validate:"omitempty,max=20,dive,required,max=200"`
}

type updateTaskRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=2000"`
	Priority      *string    `json:"priority"`
	Category      *string    `json:"category"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	EstimatedTime *int       `json:"estimated_time" validate:"omitempty,gte=0"`
}

type transitionTaskRequest struct {
	Status string `json:"status" validate:"required"`
}

type setSubtaskRequest struct {
	Completed bool `json:"completed"`
}

// decodeRequest reads the JSON body into dst and runs the validator over it.
// Both failure modes surface as ErrValidation so handlers map them to 400.
func decodeRequest(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", errs.ErrValidation)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrValidation, err.Error())
	}
	return nil
}
