package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
	"github.com/duongquang05/marathon-portal/internal/utils"
)

// ParticipantService manages accounts: sign-up, login, profiles and the
// admin's participant list.
type ParticipantService struct {
	Users          repository.UserRepository
	Participations repository.ParticipationRepository
	BcryptCost     int
}

func NewParticipantService(s *repository.Stores, bcryptCost int) *ParticipantService {
	return &ParticipantService{Users: s.Users, Participations: s.Participations, BcryptCost: bcryptCost}
}

// SignupInput is the registration form.
type SignupInput struct {
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Nationality    *string `json:"nationality"`
	Sex            *string `json:"sex"`
	BirthYear      *int    `json:"birth_year"`
	PassportNo     *string `json:"passport_no"`
	Mobile         *string `json:"mobile"`
	CurrentAddress *string `json:"current_address"`
	BestRecord     *string `json:"best_record"`
}

// Signup creates a participant account.
func (s *ParticipantService) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return model.User{}, apperr.Validation("fullName, email and password are required")
	}
	u := model.User{
		FullName: strings.TrimSpace(in.FullName),
		Role:     model.RoleParticipant,
	}
	patch := ProfilePatch{
		Email:          &in.Email,
		Nationality:    in.Nationality,
		Sex:            in.Sex,
		BirthYear:      in.BirthYear,
		PassportNo:     in.PassportNo,
		Mobile:         in.Mobile,
		CurrentAddress: in.CurrentAddress,
		BestRecord:     in.BestRecord,
	}
	if err := patch.apply(&u); err != nil {
		return model.User{}, err
	}
	if err := s.checkUnique(ctx, u); err != nil {
		return model.User{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return model.User{}, apperr.Validation("%s", err.Error())
	} else if err != nil {
		return model.User{}, apperr.Internal("could not hash password", err)
	}
	u.PasswordHash = hash

	if err := s.Users.Insert(ctx, &u); err != nil {
		return model.User{}, fromStorage(err, "", "account already registered")
	}
	return u, nil
}

// Authenticate checks an email and password pair.
func (s *ParticipantService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperr.Unauthorized("invalid credentials")
	} else if err != nil {
		return model.User{}, fromStorage(err, "", "")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, apperr.Unauthorized("invalid credentials")
	}
	return u, nil
}

func (s *ParticipantService) Get(ctx context.Context, id int64) (model.User, error) {
	u, err := s.Users.Get(ctx, id)
	return u, fromStorage(err, "user not found", "")
}

// List returns participant accounts ordered by id.
func (s *ParticipantService) List(ctx context.Context) ([]model.User, error) {
	list, err := s.Users.List(ctx, repository.UserFilter{Role: model.RoleParticipant})
	return list, fromStorage(err, "", "")
}

// ProfilePatch holds editable profile fields. Nil fields are kept; a blank
// string clears an optional field. Role is deliberately absent.
type ProfilePatch struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email"`
	Nationality    *string `json:"nationality"`
	Sex            *string `json:"sex"`
	BirthYear      *int    `json:"birth_year"`
	PassportNo     *string `json:"passport_no"`
	Mobile         *string `json:"mobile"`
	CurrentAddress *string `json:"current_address"`
	BestRecord     *string `json:"best_record"`
}

// UpdateProfile applies patch to user id.
func (s *ParticipantService) UpdateProfile(ctx context.Context, id int64, patch ProfilePatch) (model.User, error) {
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return model.User{}, fromStorage(err, "user not found", "")
	}
	if err := patch.apply(&u); err != nil {
		return model.User{}, err
	}
	if err := s.checkUnique(ctx, u); err != nil {
		return model.User{}, err
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return model.User{}, fromStorage(err, "user not found", "email, passport or mobile already registered")
	}
	return u, nil
}

// Delete removes a participant and their participations. Accounts with a
// recorded race result and admin accounts are kept.
func (s *ParticipantService) Delete(ctx context.Context, id int64) error {
	parts, err := s.Participations.List(ctx, repository.ParticipationFilter{UserID: id})
	if err != nil {
		return fromStorage(err, "", "")
	}
	for _, p := range parts {
		if p.HasResult() {
			return apperr.Conflict("cannot delete participant with existing race results")
		}
	}
	u, err := s.Users.Get(ctx, id)
	if err != nil {
		return fromStorage(err, "user not found", "")
	}
	if u.IsAdmin() {
		return apperr.InvalidState("cannot delete admin account")
	}
	err = s.Users.Delete(ctx, id)
	return fromStorage(err, "user not found", "cannot delete participant with existing race results")
}

// EnsureAdmin makes sure an admin account with email exists. An existing
// non-admin account with that email is promoted; its password is kept.
func (s *ParticipantService) EnsureAdmin(ctx context.Context, email, password, fullName string) (model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil && u.IsAdmin():
		return u, false, nil
	case err == nil:
		u.Role = model.RoleAdmin
		if err := s.Users.Update(ctx, u); err != nil {
			return model.User{}, false, fromStorage(err, "user not found", "")
		}
		log.Infof("promoted %s to admin", email)
		return u, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, false, fromStorage(err, "", "")
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, false, apperr.Validation("invalid email address")
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return model.User{}, false, apperr.Validation("%s", err.Error())
	} else if err != nil {
		return model.User{}, false, apperr.Internal("could not hash password", err)
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "System Admin"
	}
	u = model.User{FullName: strings.TrimSpace(fullName), Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.Users.Insert(ctx, &u); err != nil {
		return model.User{}, false, fromStorage(err, "", "email already registered")
	}
	return u, true, nil
}

// checkUnique reports which unique field of u another account already holds.
func (s *ParticipantService) checkUnique(ctx context.Context, u model.User) error {
	type uniqueField struct {
		value *string
		find  func(context.Context, string) (model.User, error)
		msg   string
	}
	fields := []uniqueField{
		{&u.Email, s.Users.FindByEmail, "email already registered"},
		{u.PassportNo, s.Users.FindByPassportNo, "passport number already registered"},
		{u.Mobile, s.Users.FindByMobile, "mobile number already registered"},
	}
	for _, p := range fields {
		if p.value == nil {
			continue
		}
		other, err := p.find(ctx, *p.value)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return fromStorage(err, "", "")
		case other.ID != u.ID:
			return apperr.Conflict("%s", p.msg)
		}
	}
	return nil
}

func (p ProfilePatch) apply(u *model.User) error {
	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return apperr.Validation("fullName cannot be empty")
		}
		u.FullName = name
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
			return apperr.Validation("invalid email address")
		}
		u.Email = email
	}
	if p.BirthYear != nil {
		if y := *p.BirthYear; y < 1900 || y > time.Now().Year() {
			return apperr.Validation("birthYear must be between 1900 and %d", time.Now().Year())
		}
		u.BirthYear = p.BirthYear
	}
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = optional(v)
		}
	}
	set(&u.Nationality, p.Nationality)
	set(&u.Sex, p.Sex)
	set(&u.PassportNo, p.PassportNo)
	set(&u.Mobile, p.Mobile)
	set(&u.CurrentAddress, p.CurrentAddress)
	set(&u.BestRecord, p.BestRecord)
	return nil
}
