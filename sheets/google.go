package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// GoogleClient is a Client for a Google spreadsheet.
type GoogleClient struct {
	spreadsheetID string
	svc           *gsheets.Service
}

// NewGoogleClient returns a client for the spreadsheet using the service
// account credentials in credentialsFile.
func NewGoogleClient(ctx context.Context, credentialsFile, spreadsheetID string) (*GoogleClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("no spreadsheet id given")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheets credentials %q: %v", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("bad sheets credentials %q: %v", credentialsFile, err)
	}
	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	neuprep.Infof("Connected to spreadsheet %s\n", spreadsheetID)
	return &GoogleClient{spreadsheetID: spreadsheetID, svc: svc}, nil
}

func (c *GoogleClient) Values(ctx context.Context, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows, nil
}

func (c *GoogleClient) Append(ctx context.Context, rng string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
