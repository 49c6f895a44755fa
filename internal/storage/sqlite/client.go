package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/plansync/backend/internal/storage/models"
	"github.com/plansync/backend/pkg/logger"
)

// ErrNoRows is returned when a requested record does not exist.
var ErrNoRows = errors.New("record not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plan_documents (
		id TEXT PRIMARY KEY,
		document_type TEXT NOT NULL,
		title TEXT NOT NULL,
		organization TEXT,
		planning_period TEXT,
		total_budget REAL,
		sections TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON plan_documents(document_type);
	CREATE INDEX IF NOT EXISTS idx_documents_updated ON plan_documents(updated_at);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		strategic_plan_id TEXT NOT NULL,
		action_plan_id TEXT NOT NULL,
		overall_score REAL NOT NULL,
		embedding_score REAL NOT NULL,
		entity_score REAL NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (strategic_plan_id) REFERENCES plan_documents(id),
		FOREIGN KEY (action_plan_id) REFERENCES plan_documents(id)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);

	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		priority TEXT NOT NULL,
		objective_id TEXT NOT NULL,
		objective_title TEXT NOT NULL,
		action_title TEXT NOT NULL,
		description TEXT,
		budget_estimate REAL NOT NULL DEFAULT 0,
		timeline TEXT,
		expected_kpis TEXT,
		rationale TEXT,
		expected_impact TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES analysis_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_proposals_run ON proposals(run_id);
	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertDocument(doc *models.PlanDocument) error {
	sectionsJSON, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	query := `
		INSERT INTO plan_documents (id, document_type, title, organization, planning_period, total_budget, sections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			organization = excluded.organization,
			planning_period = excluded.planning_period,
			total_budget = excluded.total_budget,
			sections = excluded.sections,
			updated_at = excluded.updated_at
	`

	_, err = c.db.Exec(
		query,
		doc.ID,
		doc.DocumentType,
		doc.Title,
		doc.Organization,
		doc.PlanningPeriod,
		doc.TotalBudget,
		string(sectionsJSON),
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	logger.Debug("Document stored", zap.String("doc_id", doc.ID), zap.String("type", doc.DocumentType))
	return nil
}

func (c *Client) GetDocument(id string) (*models.PlanDocument, error) {
	query := `SELECT id, document_type, title, organization, planning_period, total_budget, sections, created_at, updated_at
		FROM plan_documents WHERE id = ?`

	var doc models.PlanDocument
	var totalBudget sql.NullFloat64
	var sectionsJSON string
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.DocumentType,
		&doc.Title,
		&doc.Organization,
		&doc.PlanningPeriod,
		&totalBudget,
		&sectionsJSON,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &doc.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}
	if totalBudget.Valid {
		doc.TotalBudget = &totalBudget.Float64
	}
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) InsertAnalysisRun(run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, strategic_plan_id, action_plan_id, overall_score, embedding_score, entity_score, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.StrategicPlanID,
		run.ActionPlanID,
		run.OverallScore,
		run.EmbeddingScore,
		run.EntityScore,
		run.Payload,
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	logger.Info("Analysis run recorded",
		zap.String("run_id", run.ID),
		zap.Float64("overall_score", run.OverallScore),
	)
	return nil
}

func (c *Client) GetAnalysisRun(id string) (*models.AnalysisRun, error) {
	query := `SELECT id, strategic_plan_id, action_plan_id, overall_score, embedding_score, entity_score, payload, created_at
		FROM analysis_runs WHERE id = ?`
	return c.scanRun(c.db.QueryRow(query, id))
}

func (c *Client) GetLatestAnalysisRun() (*models.AnalysisRun, error) {
	query := `SELECT id, strategic_plan_id, action_plan_id, overall_score, embedding_score, entity_score, payload, created_at
		FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT 1`
	return c.scanRun(c.db.QueryRow(query))
}

func (c *Client) scanRun(row *sql.Row) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	var createdAt int64

	err := row.Scan(
		&run.ID,
		&run.StrategicPlanID,
		&run.ActionPlanID,
		&run.OverallScore,
		&run.EmbeddingScore,
		&run.EntityScore,
		&run.Payload,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}

	run.CreatedAt = time.Unix(createdAt, 0)
	return &run, nil
}

func (c *Client) InsertProposals(proposals []models.ProposalRecord) error {
	if len(proposals) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO proposals (id, run_id, priority, objective_id, objective_title, action_title, description,
			budget_estimate, timeline, expected_kpis, rationale, expected_impact, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, p := range proposals {
		kpisJSON, err := json.Marshal(p.ExpectedKPIs)
		if err != nil {
			return fmt.Errorf("failed to marshal expected KPIs: %w", err)
		}

		_, err = tx.Exec(
			query,
			p.ID,
			p.RunID,
			p.Priority,
			p.ObjectiveID,
			p.ObjectiveTitle,
			p.ActionTitle,
			p.Description,
			p.BudgetEstimate,
			p.Timeline,
			string(kpisJSON),
			p.Rationale,
			p.ExpectedImpact,
			p.Status,
			p.CreatedAt.Unix(),
			p.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert proposal %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit proposals: %w", err)
	}

	logger.Info("Proposals stored", zap.Int("count", len(proposals)))
	return nil
}

func (c *Client) GetProposal(id string) (*models.ProposalRecord, error) {
	query := `SELECT id, run_id, priority, objective_id, objective_title, action_title, description,
			budget_estimate, timeline, expected_kpis, rationale, expected_impact, status, created_at, updated_at
		FROM proposals WHERE id = ?`

	var p models.ProposalRecord
	var kpisJSON string
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.RunID,
		&p.Priority,
		&p.ObjectiveID,
		&p.ObjectiveTitle,
		&p.ActionTitle,
		&p.Description,
		&p.BudgetEstimate,
		&p.Timeline,
		&kpisJSON,
		&p.Rationale,
		&p.ExpectedImpact,
		&p.Status,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	json.Unmarshal([]byte(kpisJSON), &p.ExpectedKPIs)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

func (c *Client) ListProposals(runID string) ([]models.ProposalRecord, error) {
	query := `SELECT id, run_id, priority, objective_id, objective_title, action_title, description,
			budget_estimate, timeline, expected_kpis, rationale, expected_impact, status, created_at, updated_at
		FROM proposals WHERE run_id = ? ORDER BY created_at, id`

	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.ProposalRecord
	for rows.Next() {
		var p models.ProposalRecord
		var kpisJSON string
		var createdAt, updatedAt int64

		err := rows.Scan(
			&p.ID,
			&p.RunID,
			&p.Priority,
			&p.ObjectiveID,
			&p.ObjectiveTitle,
			&p.ActionTitle,
			&p.Description,
			&p.BudgetEstimate,
			&p.Timeline,
			&kpisJSON,
			&p.Rationale,
			&p.ExpectedImpact,
			&p.Status,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal row: %w", err)
		}

		json.Unmarshal([]byte(kpisJSON), &p.ExpectedKPIs)
		p.CreatedAt = time.Unix(createdAt, 0)
		p.UpdatedAt = time.Unix(updatedAt, 0)
		proposals = append(proposals, p)
	}

	return proposals, rows.Err()
}

func (c *Client) UpdateProposalStatus(id, status string) error {
	result, err := c.db.Exec(
		`UPDATE proposals SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNoRows
	}

	logger.Info("Proposal status updated", zap.String("proposal_id", id), zap.String("status", status))
	return nil
}

// FinalizeAcceptance persists the mutated action plan and the accepted status
// in one transaction. Either both writes land or neither does.
func (c *Client) FinalizeAcceptance(doc *models.PlanDocument, proposalID string) error {
	sectionsJSON, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE plan_documents SET sections = ?, total_budget = ?, updated_at = ? WHERE id = ?`,
		string(sectionsJSON), doc.TotalBudget, time.Now().Unix(), doc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update action plan: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE proposals SET status = 'accepted', updated_at = ? WHERE id = ? AND status = 'pending'`,
		time.Now().Unix(), proposalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit acceptance: %w", err)
	}

	logger.Info("Proposal acceptance finalized",
		zap.String("proposal_id", proposalID),
		zap.String("action_plan_id", doc.ID),
	)
	return nil
}
