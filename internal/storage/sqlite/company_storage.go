package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// CompanyStore is the SQLite-backed interfaces.CompanyStorage
// implementation (spec §3, §4.6).
type CompanyStore struct {
	db     *sqlx.DB
	logger arbor.ILogger
}

// NewCompanyStore wraps the shared connection's *sql.DB with sqlx.
func NewCompanyStore(conn *SQLiteDB, logger arbor.ILogger) *CompanyStore {
	return &CompanyStore{db: sqlx.NewDb(conn.DB(), "sqlite"), logger: logger}
}

var _ interfaces.CompanyStorage = (*CompanyStore)(nil)

type companyRow struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Website           string    `db:"website"`
	About             string    `db:"about"`
	Culture           string    `db:"culture"`
	Mission           string    `db:"mission"`
	TechStack         string    `db:"tech_stack"`
	Tier              string    `db:"tier"`
	PriorityScore     float64   `db:"priority_score"`
	HasPortlandOffice bool      `db:"has_portland_office"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r *companyRow) toModel() (*models.Company, error) {
	var tech []string
	if r.TechStack != "" {
		if err := json.Unmarshal([]byte(r.TechStack), &tech); err != nil {
			return nil, fmt.Errorf("decode tech_stack: %w", err)
		}
	}
	return &models.Company{
		ID:                r.ID,
		Name:              r.Name,
		Website:           r.Website,
		About:             r.About,
		Culture:           r.Culture,
		Mission:           r.Mission,
		TechStack:         tech,
		Tier:              models.CompanyTier(r.Tier),
		PriorityScore:     r.PriorityScore,
		HasPortlandOffice: r.HasPortlandOffice,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

// Create inserts a new Company row.
func (s *CompanyStore) Create(ctx context.Context, company *models.Company) (string, error) {
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now
	if company.Tier == "" {
		company.Tier = models.CompanyTierUnknown
	}

	techJSON, err := json.Marshal(company.TechStack)
	if err != nil {
		return "", fmt.Errorf("marshal tech_stack: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO companies (
			id, name, website, about, culture, mission, tech_stack, tier,
			priority_score, has_portland_office, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		company.ID, company.Name, company.Website, company.About, company.Culture, company.Mission,
		string(techJSON), string(company.Tier), company.PriorityScore, company.HasPortlandOffice,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert company: %w", err)
	}
	return company.ID, nil
}

// Get fetches a Company by ID.
func (s *CompanyStore) Get(ctx context.Context, id string) (*models.Company, error) {
	var row companyRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM companies WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return row.toModel()
}

// GetByName fetches a Company by its unique name, used to decide whether a
// COMPANY item should enrich an existing row instead of creating a new one.
func (s *CompanyStore) GetByName(ctx context.Context, name string) (*models.Company, error) {
	var row companyRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM companies WHERE name = ?`, name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %q: %w", name, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get company by name: %w", err)
	}
	return row.toModel()
}

// Update writes every mutable field of company, bumping UpdatedAt.
func (s *CompanyStore) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()

	techJSON, err := json.Marshal(company.TechStack)
	if err != nil {
		return fmt.Errorf("marshal tech_stack: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE companies SET
			name = ?, website = ?, about = ?, culture = ?, mission = ?, tech_stack = ?,
			tier = ?, priority_score = ?, has_portland_office = ?, updated_at = ?
		WHERE id = ?`,
		company.Name, company.Website, company.About, company.Culture, company.Mission,
		string(techJSON), string(company.Tier), company.PriorityScore, company.HasPortlandOffice,
		company.UpdatedAt, company.ID,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("company %s not found", company.ID)
	}
	return nil
}
