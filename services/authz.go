package services

import (
	"github.com/pkg/errors"

	"kiprej-bot/models"
)

type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Authorize allows user when its role ranks at least as high as required.
// A nil user (not registered) is always denied.
func Authorize(user *models.User, required models.Role) Decision {
	if user == nil {
		return Deny
	}
	return Decision(user.Role.Rank() >= required.Rank() && user.Role.Rank() > 0)
}

// Require is Authorize as an error, for privileged operations.
func Require(user *models.User, required models.Role) error {
	if Authorize(user, required) == Deny {
		return errors.Wrapf(ErrForbidden, "%s role required", required)
	}
	return nil
}
