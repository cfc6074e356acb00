package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/utils"
)

// AccountsTableDDL creates the accounts table.
const AccountsTableDDL = `CREATE TABLE IF NOT EXISTS accounts (
  uid           CHAR(36)     NOT NULL PRIMARY KEY,
  email         VARCHAR(255) NOT NULL,
  display_name  VARCHAR(255) NOT NULL DEFAULT '',
  password_hash VARCHAR(255) NOT NULL,
  disabled      TINYINT(1)   NOT NULL DEFAULT 0,
  created_at    DATETIME(6)  NOT NULL,
  UNIQUE KEY uq_accounts_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLProvider keeps accounts in MySQL and creates the matching user
// document on sign-up.
type MySQLProvider struct {
	DB         *sql.DB
	Users      *repository.UserRepo
	BcryptCost int
}

func NewMySQLProvider(db *sql.DB, users *repository.UserRepo, cost int) *MySQLProvider {
	return &MySQLProvider{DB: db, Users: users, BcryptCost: cost}
}

// SignUp inserts the account and creates the user document.  The account
// insert is rolled back when the user document cannot be written.
func (p *MySQLProvider) SignUp(ctx context.Context, email, password, displayName string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if err := checkPassword(password); err != nil {
		return Account{}, err
	}
	hash, err := utils.HashPassword(password, p.BcryptCost)
	if err != nil {
		return Account{}, err
	}
	acc := Account{
		UID:         uuid.NewString(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO accounts (uid, email, display_name, password_hash, created_at) VALUES (?,?,?,?,?)",
		acc.UID, acc.Email, acc.DisplayName, hash, acc.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return Account{}, ErrEmailAlreadyInUse
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	if err := p.Users.Create(ctx, model.User{ID: acc.UID, Name: acc.DisplayName, Email: acc.Email}); err != nil {
		return Account{}, fmt.Errorf("create user document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		// the user document lives outside tx, so undo it by hand
		if derr := p.Users.Delete(context.WithoutCancel(ctx), acc.UID); derr != nil {
			log.Printf("identity: remove orphan user document %s: %v", acc.UID, derr)
		}
		return Account{}, fmt.Errorf("commit account: %w", err)
	}
	committed = true
	return acc, nil
}

// SignIn checks the password of the account registered under email.
func (p *MySQLProvider) SignIn(ctx context.Context, email, password string) (Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	var (
		acc  Account
		hash string
	)
	err = p.DB.QueryRowContext(ctx,
		"SELECT uid, email, display_name, password_hash, disabled, created_at FROM accounts WHERE email=? LIMIT 1",
		email).Scan(&acc.UID, &acc.Email, &acc.DisplayName, &hash, &acc.Disabled, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrUserNotFound
		}
		return Account{}, fmt.Errorf("query account: %w", err)
	}
	if acc.Disabled {
		return Account{}, ErrUserDisabled
	}
	if !utils.VerifyPassword(hash, password) {
		return Account{}, ErrWrongPassword
	}
	if utils.NeedsRehash(hash, p.BcryptCost) {
		p.rehash(ctx, acc.UID, password)
	}
	return acc, nil
}

// rehash stores a hash at the configured cost.  Failure only costs a
// slower sign-in next time, so it is logged and ignored.
func (p *MySQLProvider) rehash(ctx context.Context, uid, password string) {
	hash, err := utils.HashPassword(password, p.BcryptCost)
	if err == nil {
		_, err = p.DB.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE uid=?", hash, uid)
	}
	if err != nil {
		log.Printf("identity: rehash %s: %v", uid, err)
	}
}

// SetDisabled blocks or unblocks sign-in for an account.
func (p *MySQLProvider) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	res, err := p.DB.ExecContext(ctx, "UPDATE accounts SET disabled=? WHERE uid=?", disabled, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// MySQL reports changed rows, so 0 may mean the flag was already set
	var one int
	err = p.DB.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE uid=?", uid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}
