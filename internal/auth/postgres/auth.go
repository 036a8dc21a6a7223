package postgres

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/handyhub/booking-payments/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var passwordHash string
	var userID string
	query := `SELECT id, password_hash FROM users WHERE email = ? AND is_active = true`

	row := r.db.Raw(query, email).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return "", "", fmt.Errorf("user not found")
		}
		return "", "", err
	}
	return passwordHash, userID, nil
}

func (r *Repository) GetUser(userID int64) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email, full_name, role FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.Role); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// ProcessorAccountID returns the provider's connected payout account, or an
// empty string when the provider has not completed onboarding.
func (r *Repository) ProcessorAccountID(providerID int64) (string, error) {
	var accountID sql.NullString
	query := `SELECT processor_account_id FROM users WHERE id = ? AND is_active = true`

	row := r.db.Raw(query, providerID).Row()
	if err := row.Scan(&accountID); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("provider not found")
		}
		return "", err
	}
	if !accountID.Valid {
		return "", nil
	}
	return accountID.String, nil
}
