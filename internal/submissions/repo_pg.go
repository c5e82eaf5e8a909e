package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"
)

const selectColumns = `id, submitter_name, submitter_email, peer_reviewer_name, peer_reviewer_email,
    title, source, original_abstract, final_abstract, tags,
    file_key, file_url, file_name, file_size, file_content_type, form_data,
    visibility, created_at, reviewed_at, reviewed_by`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Insert writes s as a pending record and returns it with the generated id and timestamp.
func (r *PGRepo) Insert(ctx context.Context, s Submission) (Submission, error) {
	const query = `
INSERT INTO submissions (
    submitter_name,
    submitter_email,
    peer_reviewer_name,
    peer_reviewer_email,
    title,
    source,
    original_abstract,
    final_abstract,
    tags,
    file_key,
    file_url,
    file_name,
    file_size,
    file_content_type,
    form_data,
    visibility
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id, created_at`

	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	var formData any
	if len(s.FormData) > 0 {
		formData = []byte(s.FormData)
	}
	var fileSize sql.NullInt64
	if s.FileKey != "" || s.FileSize > 0 {
		fileSize = sql.NullInt64{Int64: s.FileSize, Valid: true}
	}

	err := r.DB.QueryRowContext(
		ctx,
		query,
		s.SubmitterName,
		s.SubmitterEmail,
		nullString(s.PeerReviewerName),
		nullString(s.PeerReviewerEmail),
		s.Title,
		nullString(s.Source),
		nullString(s.OriginalAbstract),
		nullString(s.FinalAbstract),
		tags,
		nullString(s.FileKey),
		nullString(s.FileURL),
		nullString(s.FileName),
		fileSize,
		nullString(s.FileContentType),
		formData,
		string(VisibilityPending),
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return Submission{}, err
	}
	s.Tags = tags
	s.Visibility = VisibilityPending
	s.ReviewedAt = nil
	s.ReviewedBy = ""
	return s, nil
}

// Query fetches one page of matching records, newest first, and the unpaged total.
func (r *PGRepo) Query(ctx context.Context, f Filter, p Page) ([]Submission, int, error) {
	where, args := buildWhere(f)

	listQuery := `SELECT ` + selectColumns + `
FROM submissions` + where + `
ORDER BY created_at DESC, id DESC`
	listArgs := append([]any{}, args...)
	if p.Limit > 0 {
		listArgs = append(listArgs, p.Limit)
		listQuery += fmt.Sprintf("\nLIMIT $%d", len(listArgs))
	}
	if p.Offset > 0 {
		listArgs = append(listArgs, p.Offset)
		listQuery += fmt.Sprintf("\nOFFSET $%d", len(listArgs))
	}
	countQuery := `SELECT COUNT(*) FROM submissions` + where

	var (
		out   []Submission
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.DB.QueryRowContext(gctx, countQuery, args...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.DB.QueryContext(gctx, listQuery, listArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		typeMap := pgtype.NewMap()
		out = []Submission{}
		for rows.Next() {
			s, err := scanSubmission(rows, typeMap)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID returns one record.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Submission, error) {
	query := `SELECT ` + selectColumns + `
FROM submissions
WHERE id = $1`
	s, err := scanSubmission(r.DB.QueryRowContext(ctx, query, id), pgtype.NewMap())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	return s, nil
}

// SetVisibility updates one record and returns it.
func (r *PGRepo) SetVisibility(ctx context.Context, id int64, v Visibility, by Reviewer, at time.Time) (Submission, error) {
	if !v.Valid() {
		return Submission{}, ErrInvalidVisibility
	}
	query := `
UPDATE submissions
SET visibility = $1, reviewed_at = $2, reviewed_by = $3
WHERE id = $4
RETURNING ` + selectColumns
	s, err := scanSubmission(r.DB.QueryRowContext(ctx, query, string(v), at.UTC(), reviewerLabel(by), id), pgtype.NewMap())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	return s, nil
}

// UpdateVisibility updates every existing id and returns how many rows changed.
func (r *PGRepo) UpdateVisibility(ctx context.Context, ids []int64, v Visibility, by Reviewer, at time.Time) (int, error) {
	if !v.Valid() {
		return 0, ErrInvalidVisibility
	}
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `
UPDATE submissions
SET visibility = $1, reviewed_at = $2, reviewed_by = $3
WHERE id = ANY($4)`
	res, err := r.DB.ExecContext(ctx, query, string(v), at.UTC(), reviewerLabel(by), ids)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

// Delete removes one record.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByVisibility tallies records per visibility.
func (r *PGRepo) CountByVisibility(ctx context.Context) (Stats, error) {
	const query = `
SELECT visibility, COUNT(*)
FROM submissions
GROUP BY visibility`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var (
			v Visibility
			n int
		)
		if err := rows.Scan(&v, &n); err != nil {
			return Stats{}, err
		}
		st.add(v, n)
	}
	return st, rows.Err()
}

// KeyReferenced reports whether any record still points at key.
func (r *PGRepo) KeyReferenced(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE file_key = $1)`, key).Scan(&exists)
	return exists, err
}

func buildWhere(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Visibility != "" {
		args = append(args, string(f.Visibility))
		clauses = append(clauses, fmt.Sprintf("visibility = $%d", len(args)))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		var cols []string
		switch f.Scope {
		case SearchContent:
			cols = []string{"title", "original_abstract", "final_abstract", "submitter_name"}
		default:
			cols = []string{"title", "submitter_name", "submitter_email"}
		}
		ors := make([]string, len(cols))
		for i, col := range cols {
			ors[i] = fmt.Sprintf("COALESCE(%s, '') ILIKE $%d", col, n)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func scanSubmission(row rowScanner, typeMap *pgtype.Map) (Submission, error) {
	var (
		s                Submission
		peerName         sql.NullString
		peerEmail        sql.NullString
		source           sql.NullString
		originalAbstract sql.NullString
		finalAbstract    sql.NullString
		fileKey          sql.NullString
		fileURL          sql.NullString
		fileName         sql.NullString
		fileSize         sql.NullInt64
		fileContentType  sql.NullString
		formData         []byte
		visibility       string
		reviewedAt       sql.NullTime
		reviewedBy       sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.SubmitterName,
		&s.SubmitterEmail,
		&peerName,
		&peerEmail,
		&s.Title,
		&source,
		&originalAbstract,
		&finalAbstract,
		typeMap.SQLScanner(&s.Tags),
		&fileKey,
		&fileURL,
		&fileName,
		&fileSize,
		&fileContentType,
		&formData,
		&visibility,
		&s.CreatedAt,
		&reviewedAt,
		&reviewedBy,
	)
	if err != nil {
		return Submission{}, err
	}
	s.PeerReviewerName = peerName.String
	s.PeerReviewerEmail = peerEmail.String
	s.Source = source.String
	s.OriginalAbstract = originalAbstract.String
	s.FinalAbstract = finalAbstract.String
	s.FileKey = fileKey.String
	s.FileURL = fileURL.String
	s.FileName = fileName.String
	s.FileSize = fileSize.Int64
	s.FileContentType = fileContentType.String
	if len(formData) > 0 {
		s.FormData = formData
	}
	s.Visibility = Visibility(visibility)
	if reviewedAt.Valid {
		at := reviewedAt.Time
		s.ReviewedAt = &at
	}
	s.ReviewedBy = reviewedBy.String
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
