package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	if params.Username == "" || params.Name == "" {
		return nil, fmt.Errorf("%w: username and name are required", store.ErrValidation)
	}
	if !params.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, params.Role)
	}
	if params.Role.IsReseller() && params.CommissionPercent.IsNegative() {
		return nil, fmt.Errorf("%w: commission percent cannot be negative", store.ErrValidation)
	}

	hash := ""
	if params.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("unable to hash password: %w", err)
		}
		hash = string(hashed)
	}

	userId := uuid.New().String()
	zap.L().Info("Creating user",
		zap.String("id", userId),
		zap.String("username", params.Username),
		zap.String("role", string(params.Role)))

	_, err := s.db.ExecContext(ctx, queryInsertUser,
		userId, params.Username, hash, params.Name, params.Phone,
		string(params.Role), params.CommissionPercent.String(), params.UsesLogistics)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateUsername, params.Username)
		}
		zap.L().Error("Failed to insert user", zap.String("username", params.Username), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	return s.GetUserById(ctx, userId)
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userId)
		}
		return nil, fmt.Errorf("unable to query user by id: %w", err)
	}
	return user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserByUsername, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, username)
		}
		return nil, fmt.Errorf("unable to query user by username: %w", err)
	}
	return user, nil
}

// ListUsers returns active users with the given role, or every user when
// role is empty.
func (s *Service) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx, queryListAllUsers)
	} else {
		rows, err = s.db.QueryContext(ctx, queryListUsersByRole, string(role))
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (s *Service) SetUserActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, querySetUserActive, active, id)
	if err != nil {
		return fmt.Errorf("unable to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, id)
	}

	zap.L().Info("User active flag updated", zap.String("user_id", id), zap.Bool("active", active))
	return nil
}

func (s *Service) SetUserPassword(ctx context.Context, id, password string, mustChange bool) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", store.ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("unable to hash password: %w", err)
	}

	result, err := s.db.ExecContext(ctx, querySetUserPassword, string(hashed), mustChange, id)
	if err != nil {
		return fmt.Errorf("unable to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, id)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	var role, commissionStr, owedStr string
	err := row.Scan(&user.Id, &user.Username, &user.PasswordHash, &user.Name, &user.Phone,
		&role, &user.Active, &user.MustChangePassword,
		&commissionStr, &owedStr, &user.UsesLogistics, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	if user.CommissionPercent, err = decimal.NewFromString(commissionStr); err != nil {
		return nil, fmt.Errorf("failed to parse commission_percent %q: %w", commissionStr, err)
	}
	if user.BalanceOwed, err = decimal.NewFromString(owedStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance_owed %q: %w", owedStr, err)
	}
	return &user, nil
}
