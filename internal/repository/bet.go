package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/infra"
)

const betColumns = `id, user_id, match_name, sport, competition, bet_type, prediction,
	odds, stake, potential_win, actual_win, match_date::text, match_time, bookmaker,
	ticket_id, status, confidence_score, is_ocr_extracted, created_at, updated_at`

// PgBetRepository implements BetRepository using pgx.
type PgBetRepository struct{}

// NewPgBetRepository creates a new PgBetRepository.
func NewPgBetRepository() *PgBetRepository {
	return &PgBetRepository{}
}

func (r *PgBetRepository) Create(ctx context.Context, db DBTX, b *domain.Bet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO bets (id, user_id, match_name, sport, competition, bet_type, prediction,
			odds, stake, potential_win, actual_win, match_date, match_time, bookmaker,
			ticket_id, status, confidence_score, is_ocr_extracted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::text::date, $13, $14,
			$15, $16, $17, $18, $19, $20)`,
		b.ID, b.UserID, b.MatchName, b.Sport, b.Competition, string(b.BetType), b.Prediction,
		infra.Float64ToNumeric(b.Odds, 3),
		infra.Float64ToNumeric(b.Stake, 2),
		infra.NullableFloat64ToNumeric(b.PotentialWin, 2),
		infra.NullableFloat64ToNumeric(b.ActualWin, 2),
		b.MatchDate, b.MatchTime, b.Bookmaker,
		b.TicketID, string(b.Status),
		infra.NullableFloat64ToNumeric(b.ConfidenceScore, 2),
		b.IsOCRExtracted, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

func (r *PgBetRepository) FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Bet, error) {
	row := db.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 AND user_id = $2`, id, userID)
	return scanBetOrNil(row)
}

func (r *PgBetRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Bet, error) {
	row := tx.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	return scanBetOrNil(row)
}

func (r *PgBetRepository) Update(ctx context.Context, db DBTX, b *domain.Bet) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE bets SET
			match_name = $3, sport = $4, competition = $5, bet_type = $6, prediction = $7,
			odds = $8, stake = $9, potential_win = $10, actual_win = $11,
			match_date = $12::text::date, match_time = $13, bookmaker = $14, ticket_id = $15,
			status = $16, confidence_score = $17, updated_at = $18
		WHERE id = $1 AND user_id = $2`,
		b.ID, b.UserID,
		b.MatchName, b.Sport, b.Competition, string(b.BetType), b.Prediction,
		infra.Float64ToNumeric(b.Odds, 3),
		infra.Float64ToNumeric(b.Stake, 2),
		infra.NullableFloat64ToNumeric(b.PotentialWin, 2),
		infra.NullableFloat64ToNumeric(b.ActualWin, 2),
		b.MatchDate, b.MatchTime, b.Bookmaker, b.TicketID,
		string(b.Status),
		infra.NullableFloat64ToNumeric(b.ConfidenceScore, 2),
		b.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update bet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgBetRepository) Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM bets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete bet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgBetRepository) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	return collectBets(rows)
}

func (r *PgBetRepository) ListCreatedSince(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) ([]domain.Bet, error) {
	rows, err := db.Query(ctx, `
		SELECT `+betColumns+` FROM bets
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list bets since: %w", err)
	}
	return collectBets(rows)
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	defer rows.Close()

	bets := []domain.Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}
	return bets, nil
}

func scanBetOrNil(row pgx.Row) (*domain.Bet, error) {
	b, err := scanBet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func scanBet(row pgx.Row) (*domain.Bet, error) {
	var b domain.Bet
	var betType, status string
	var odds, stake, potential, actual, confidence pgtype.Numeric
	err := row.Scan(
		&b.ID, &b.UserID, &b.MatchName, &b.Sport, &b.Competition, &betType, &b.Prediction,
		&odds, &stake, &potential, &actual, &b.MatchDate, &b.MatchTime, &b.Bookmaker,
		&b.TicketID, &status, &confidence, &b.IsOCRExtracted, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan bet: %w", err)
	}
	b.BetType = domain.BetType(betType)
	b.Status = domain.BetStatus(status)

	if b.Odds, err = infra.NumericToFloat64(odds); err != nil {
		return nil, fmt.Errorf("bet odds: %w", err)
	}
	if b.Stake, err = infra.NumericToFloat64(stake); err != nil {
		return nil, fmt.Errorf("bet stake: %w", err)
	}
	if b.PotentialWin, err = infra.NullableNumericToFloat64(potential); err != nil {
		return nil, fmt.Errorf("bet potential_win: %w", err)
	}
	if b.ActualWin, err = infra.NullableNumericToFloat64(actual); err != nil {
		return nil, fmt.Errorf("bet actual_win: %w", err)
	}
	if b.ConfidenceScore, err = infra.NullableNumericToFloat64(confidence); err != nil {
		return nil, fmt.Errorf("bet confidence_score: %w", err)
	}
	return &b, nil
}
