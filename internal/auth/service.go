package auth

import (
	"fmt"

	"github.com/Ryz0n/auth-service/internal/database"
	"github.com/Ryz0n/auth-service/internal/models"
	"github.com/Ryz0n/auth-service/internal/utils"
	"github.com/microcosm-cc/bluemonday"
)

var usernamePolicy = bluemonday.StrictPolicy()

func RegisterUser(email, username, password string) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Email:    email,
		Username: usernamePolicy.Sanitize(username),
		Password: hashedPassword,
	}

	if err := database.DB.Create(&u).Error; err != nil {
		return nil, err
	}

	return &u, nil
}

// LoginUser returns one generic error for unknown email and wrong
// password alike.
func LoginUser(email, password string) (*models.User, error) {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, fmt.Errorf("invalid credentials")
	}

	return &user, nil
}
