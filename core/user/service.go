package user

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/kosakata/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrUserExists  = errors.New("a user with this username or email already exists")
	ErrInvalidRole = errors.New("invalid role")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
		loc  *time.Location
		now  func() time.Time
	}
)

// NewService returns a user Service; now defaults to time.Now when nil.
func NewService(repo Repository, conf *core.Config, now func() time.Time) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(conf, "conf"),
	).Check()
	if err != nil {
		return nil, err
	}

	loc, err := conf.Submission.Location()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, loc: loc, now: now}, nil
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrUserExists {
			return core.NewValidationError(err,
				core.FieldError{Field: "username", Error: err.Error()},
				core.FieldError{Field: "email", Error: err.Error()},
			)
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	return nil
}

// Create registers a new User; students are enrolled today unless NewUser.EnrolledOn is set.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.now().UTC()
	usr := User{
		ID:         uuid.New().String(),
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		IsActive:   true,
		Role:       nu.Role,
		EnrolledOn: nu.EnrolledOn,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if usr.EnrolledOn.IsZero() {
		usr.EnrolledOn = civil.DateOf(now.In(svc.loc))
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = svc.now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
