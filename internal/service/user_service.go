package service

import (
	"errors"

	"dispatch-service/internal/jwt"
	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

type UserService struct {
	repo *repository.UserRepository
	jwt  *jwt.Manager
	log  *zap.Logger
}

func NewUserService(repo *repository.UserRepository, jwtManager *jwt.Manager, log *zap.Logger) *UserService {
	return &UserService{
		repo: repo,
		jwt:  jwtManager,
		log:  log,
	}
}

func (s *UserService) Register(username, email, password, role string) (*models.User, error) {
	existing, err := s.repo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleUser
	}
	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if err := s.repo.Create(user); err != nil {
		s.log.Error("failed to create user", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a JWT.
func (s *UserService) Login(username, password string) (string, *models.User, error) {
	user, err := s.repo.GetByUsername(username)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *UserService) GetByID(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(offset, limit int) ([]models.User, int64, error) {
	return s.repo.List(offset, limit)
}

func (s *UserService) Update(user *models.User) error {
	return s.repo.Save(user)
}

func (s *UserService) Delete(id uint) error {
	ok, err := s.repo.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
