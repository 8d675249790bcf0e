package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-platform/pkg/platform"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type beginner interface {
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements platform.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ platform.Repository = (*Repository)(nil)

// EnsureSchema creates the tables used by the repository and the rate
// limit counters if they do not exist yet.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return handlePostgresError("ensure schema", err)
	}
	return nil
}

// handlePostgresError maps driver errors onto the platform sentinels.
func handlePostgresError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return platform.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, platform.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record: %w", platform.ErrNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func expectRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return platform.ErrNotFound
	}
	return nil
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereBuilder) page(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}

// Tenant operations

const tenantColumns = `id, name, slug, description, contact_email, approval_state, active, created_at, updated_at`

func scanTenant(row pgx.Row) (*platform.Tenant, error) {
	var t platform.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.ContactEmail,
		&t.ApprovalState, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) CreateTenant(ctx context.Context, tenant *platform.Tenant) error {
	query := `INSERT INTO tenant (` + tenantColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		tenant.ID, tenant.Name, tenant.Slug, tenant.Description, tenant.ContactEmail,
		tenant.ApprovalState, tenant.Active, tenant.CreatedAt, tenant.UpdatedAt)
	return handlePostgresError("create tenant", err)
}

func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (*platform.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant WHERE id = $1`

	tenant, err := scanTenant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, handlePostgresError("get tenant", err)
	}
	return tenant, nil
}

func (r *Repository) UpdateTenant(ctx context.Context, tenant *platform.Tenant) error {
	query := `
		UPDATE tenant SET
			name = $2, slug = $3, description = $4, contact_email = $5,
			approval_state = $6, active = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		tenant.ID, tenant.Name, tenant.Slug, tenant.Description, tenant.ContactEmail,
		tenant.ApprovalState, tenant.Active, tenant.UpdatedAt)
	if err != nil {
		return handlePostgresError("update tenant", err)
	}
	return expectRow(tag)
}

func (r *Repository) ListTenants(ctx context.Context, filter platform.TenantFilter) ([]*platform.Tenant, error) {
	var w whereBuilder
	if filter.IDs != nil {
		w.add("id = ANY(?)", filter.IDs)
	}
	if filter.ApprovalState != nil {
		w.add("approval_state = ?", *filter.ApprovalState)
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}
	query := `SELECT ` + tenantColumns + ` FROM tenant` + w.sql() + ` ORDER BY name` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, handlePostgresError("list tenants", err)
	}
	defer rows.Close()

	var tenants []*platform.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, handlePostgresError("list tenants", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, handlePostgresError("list tenants", rows.Err())
}

// DeleteTenant detaches accounts and removes the tenant in one transaction.
// Content and messages go with it through ON DELETE CASCADE.
func (r *Repository) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	return r.inTx(ctx, func(tx DBTX) error {
		_, err := tx.Exec(ctx,
			`UPDATE account SET tenant_id = NULL, updated_at = $2 WHERE tenant_id = $1`,
			id, time.Now().UTC())
		if err != nil {
			return handlePostgresError("detach accounts", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tenant WHERE id = $1`, id)
		if err != nil {
			return handlePostgresError("delete tenant", err)
		}
		return expectRow(tag)
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(DBTX) error) error {
	b, ok := r.db.(beginner)
	if !ok {
		return fn(r.db)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return handlePostgresError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return handlePostgresError("commit", tx.Commit(ctx))
}

// Account operations

const accountColumns = `id, email, password_hash, role, tenant_id, created_at, updated_at`

func scanAccount(row pgx.Row) (*platform.Account, error) {
	var a platform.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.TenantID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account *platform.Account) error {
	query := `INSERT INTO account (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.Role,
		account.TenantID, account.CreatedAt, account.UpdatedAt)
	return handlePostgresError("create account", err)
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*platform.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, handlePostgresError("get account", err)
	}
	return account, nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*platform.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE email = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, handlePostgresError("get account by email", err)
	}
	return account, nil
}

func (r *Repository) ListAccounts(ctx context.Context, filter platform.AccountFilter) ([]*platform.Account, error) {
	var w whereBuilder
	if filter.TenantID != nil {
		w.add("tenant_id = ?", *filter.TenantID)
	}
	if filter.Role != nil {
		w.add("role = ?", *filter.Role)
	}
	query := `SELECT ` + accountColumns + ` FROM account` + w.sql() + ` ORDER BY email`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, handlePostgresError("list accounts", err)
	}
	defer rows.Close()

	var accounts []*platform.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, handlePostgresError("list accounts", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, handlePostgresError("list accounts", rows.Err())
}

// Content operations

const contentColumns = `id, kind, owner_tenant_id, title, summary, body,
	approval_state, publication_state, published_at, is_featured,
	mime_type, file_name, file_size, object_key,
	location, starts_at, ends_at, created_by, created_at, updated_at`

func scanContent(row pgx.Row) (*platform.Content, error) {
	var c platform.Content
	err := row.Scan(&c.ID, &c.Kind, &c.OwnerTenantID, &c.Title, &c.Summary, &c.Body,
		&c.ApprovalState, &c.PublicationState, &c.PublishedAt, &c.IsFeatured,
		&c.MimeType, &c.FileName, &c.FileSize, &c.ObjectKey,
		&c.Location, &c.StartsAt, &c.EndsAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) CreateContent(ctx context.Context, content *platform.Content) error {
	query := `INSERT INTO content (` + contentColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.Exec(ctx, query,
		content.ID, content.Kind, content.OwnerTenantID, content.Title, content.Summary, content.Body,
		content.ApprovalState, content.PublicationState, content.PublishedAt, content.IsFeatured,
		content.MimeType, content.FileName, content.FileSize, content.ObjectKey,
		content.Location, content.StartsAt, content.EndsAt, content.CreatedBy, content.CreatedAt, content.UpdatedAt)
	return handlePostgresError("create content", err)
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*platform.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1`

	content, err := scanContent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, handlePostgresError("get content", err)
	}
	return content, nil
}

// UpdateContent writes every mutable column. Kind, owner and creator never change.
func (r *Repository) UpdateContent(ctx context.Context, content *platform.Content) error {
	query := `
		UPDATE content SET
			title = $2, summary = $3, body = $4,
			approval_state = $5, publication_state = $6, published_at = $7, is_featured = $8,
			mime_type = $9, file_name = $10, file_size = $11, object_key = $12,
			location = $13, starts_at = $14, ends_at = $15, updated_at = $16
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		content.ID, content.Title, content.Summary, content.Body,
		content.ApprovalState, content.PublicationState, content.PublishedAt, content.IsFeatured,
		content.MimeType, content.FileName, content.FileSize, content.ObjectKey,
		content.Location, content.StartsAt, content.EndsAt, content.UpdatedAt)
	if err != nil {
		return handlePostgresError("update content", err)
	}
	return expectRow(tag)
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete content", err)
	}
	return expectRow(tag)
}

func (r *Repository) ListContent(ctx context.Context, filter platform.ContentFilter) ([]*platform.Content, error) {
	var w whereBuilder
	if filter.Kind != nil {
		w.add("kind = ?", *filter.Kind)
	}
	if filter.TenantID != nil {
		w.add("owner_tenant_id = ?", *filter.TenantID)
	}
	if filter.ApprovalState != nil {
		w.add("approval_state = ?", *filter.ApprovalState)
	}
	if filter.PublicationState != nil {
		w.add("publication_state = ?", *filter.PublicationState)
	}
	if filter.Featured != nil {
		w.add("is_featured = ?", *filter.Featured)
	}
	if filter.Query != "" {
		w.add("(title ILIKE ? OR summary ILIKE ? OR body ILIKE ?)", "%"+escapeLike(filter.Query)+"%")
	}
	query := `SELECT ` + contentColumns + ` FROM content` + w.sql() +
		` ORDER BY created_at DESC` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, handlePostgresError("list content", err)
	}
	defer rows.Close()

	var items []*platform.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, handlePostgresError("list content", err)
		}
		items = append(items, content)
	}
	return items, handlePostgresError("list content", rows.Err())
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Message operations

const messageColumns = `id, owner_tenant_id, parent_id, sender_name, sender_email, subject, body,
	approval_state, active, created_by, created_at, updated_at`

func scanMessage(row pgx.Row) (*platform.Message, error) {
	var m platform.Message
	err := row.Scan(&m.ID, &m.OwnerTenantID, &m.ParentID, &m.SenderName, &m.SenderEmail, &m.Subject, &m.Body,
		&m.ApprovalState, &m.Active, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMessage(ctx context.Context, message *platform.Message) error {
	query := `INSERT INTO message (` + messageColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		message.ID, message.OwnerTenantID, message.ParentID, message.SenderName, message.SenderEmail,
		message.Subject, message.Body, message.ApprovalState, message.Active, message.CreatedBy,
		message.CreatedAt, message.UpdatedAt)
	return handlePostgresError("create message", err)
}

func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (*platform.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM message WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, handlePostgresError("get message", err)
	}
	return message, nil
}

func (r *Repository) UpdateMessage(ctx context.Context, message *platform.Message) error {
	query := `
		UPDATE message SET
			subject = $2, body = $3, approval_state = $4, active = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		message.ID, message.Subject, message.Body, message.ApprovalState, message.Active, message.UpdatedAt)
	if err != nil {
		return handlePostgresError("update message", err)
	}
	return expectRow(tag)
}

// DeleteMessage removes the message; replies follow through ON DELETE CASCADE.
func (r *Repository) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM message WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete message", err)
	}
	return expectRow(tag)
}

func (r *Repository) ListMessages(ctx context.Context, filter platform.MessageFilter) ([]*platform.Message, error) {
	var w whereBuilder
	if filter.TenantID != nil {
		w.add("owner_tenant_id = ?", *filter.TenantID)
	}
	if filter.ParentID != nil {
		w.add("parent_id = ?", *filter.ParentID)
	}
	if filter.ApprovalState != nil {
		w.add("approval_state = ?", *filter.ApprovalState)
	}
	query := `SELECT ` + messageColumns + ` FROM message` + w.sql() +
		` ORDER BY created_at DESC` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, handlePostgresError("list messages", err)
	}
	defer rows.Close()

	var messages []*platform.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, handlePostgresError("list messages", err)
		}
		messages = append(messages, message)
	}
	return messages, handlePostgresError("list messages", rows.Err())
}
