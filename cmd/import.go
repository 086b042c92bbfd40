package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/db"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/store"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load credentialing applications from CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		apps, err := readApplicationsCSV(importCSVPath)
		if err != nil {
			return err
		}

		var imported int64
		if pg, ok := st.(*store.PostgresStore); ok {
			imported, err = copyApplications(ctx, pg, apps)
		} else {
			imported, err = saveApplications(ctx, st, apps)
		}
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("applications", imported),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

// copyApplications bulk-inserts via the COPY protocol, bypassing the
// per-row upsert path.
func copyApplications(ctx context.Context, pg *store.PostgresStore, apps []model.Application) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(apps))
	for i := range apps {
		apps[i].CreatedAt = now
		data, err := json.Marshal(apps[i])
		if err != nil {
			return 0, eris.Wrapf(err, "marshal application %d", apps[i].ID)
		}
		rows = append(rows, []any{apps[i].ID, data, string(model.ApplicationStatusNew), now, now})
	}

	n, err := db.CopyFrom(ctx, pg.Pool(), "applications",
		[]string{"id", "data", "status", "created_at", "updated_at"}, rows)
	return n, eris.Wrap(err, "copy applications")
}

func saveApplications(ctx context.Context, st store.Store, apps []model.Application) (int64, error) {
	var n int64
	for i := range apps {
		if err := st.SaveApplication(ctx, &apps[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func readApplicationsCSV(path string) ([]model.Application, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, eris.New("csv is missing required column: id")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var apps []model.Application
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read csv line %d", line)
		}

		id, err := strconv.ParseInt(field(record, "id"), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv line %d: parse id", line)
		}

		apps = append(apps, model.Application{
			ID:          id,
			FirstName:   field(record, "first_name"),
			MiddleName:  field(record, "middle_name"),
			LastName:    field(record, "last_name"),
			SSN:         field(record, "ssn"),
			DateOfBirth: field(record, "date_of_birth"),
			Email:       field(record, "email"),
			Phone:       field(record, "phone"),
			Address: model.Address{
				Line1: field(record, "address_line1"),
				Line2: field(record, "address_line2"),
				City:  field(record, "city"),
				State: field(record, "state"),
				Zip:   field(record, "zip"),
			},
			NPINumber:      field(record, "npi_number"),
			DEANumber:      field(record, "dea_number"),
			LicenseNumber:  field(record, "license_number"),
			CredentialType: field(record, "credential_type"),
		})
	}
	return apps, nil
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
