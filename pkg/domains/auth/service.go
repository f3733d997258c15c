package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/entities"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service interface {
	Register(ctx context.Context, req dtos.DTOForUserCreate) (string, error)
	Login(ctx context.Context, req dtos.DTOForUserLogin) (string, error)
}

type service struct {
	repository Repository
}

func NewService(r Repository) Service {
	return &service{
		repository: r,
	}
}

func (s *service) Register(ctx context.Context, req dtos.DTOForUserCreate) (string, error) {
	// Check if user already exists
	existingUser, err := s.repository.FindUserByEmail(ctx, req.Email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf(constant.SOMETHING_WENT_WRONG)
	}

	if existingUser.ID != 0 {
		return "", fmt.Errorf(constant.ALREADY_EXISTS, "User")
	}

	// Hash password
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := entities.User{
		Email:    req.Email,
		Password: string(passwordHash),
		Name:     req.Name,
	}

	user, err = s.repository.CreateUserWithWorkspace(ctx, req.WorkspaceName, user)
	if err != nil {
		return "", err
	}

	return signToken(user)
}

func (s *service) Login(ctx context.Context, req dtos.DTOForUserLogin) (string, error) {
	// Find user by email
	user, err := s.repository.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", fmt.Errorf(constant.INVALID_CREDENTIALS)
		}
		return "", fmt.Errorf(constant.SOMETHING_WENT_WRONG)
	}

	// Verify password
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password))
	if err != nil {
		return "", fmt.Errorf(constant.UNAUTHORIZED_ACCESS)
	}

	return signToken(user)
}

// signToken issues the session JWT. Every collaborator request afterwards is
// scoped by the workspace_id claim, never by request parameters.
func signToken(user entities.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":           user.ID,
		"workspace_id": user.WorkspaceID,
		"exp":          time.Now().Add(time.Hour * 24).Unix(),
	})

	return token.SignedString([]byte(os.Getenv("SECRET")))
}
