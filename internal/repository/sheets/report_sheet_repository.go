package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/theb0imanuu/PharmaCheck/internal/config"
)

const reportRange = "Reports!A:G"

// Repository is the sink for scheduled stock reports.
type Repository interface {
	AppendReportRow(ctx context.Context, values []interface{}) error
}

// GoogleSheetRepository appends report rows to a spreadsheet shared with the
// pharmacy owner.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed report sink.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendReportRow appends one report row to the Reports sheet.
func (r *GoogleSheetRepository) AppendReportRow(ctx context.Context, values []interface{}) error {
	if len(values) == 0 {
		return fmt.Errorf("report row must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, reportRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append report row: %w", err)
	}

	r.logger.Debug("report row appended", zap.String("range", reportRange))
	return nil
}
