package services_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/code-centre/tech-centre-api/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func bootcamp() model.Offering {
	return model.Offering{
		Name:            "Backend Bootcamp",
		ProductType:     "program",
		BasePrice:       1000000,
		MaxInstallments: 6,
		IsActive:        true,
	}
}

func ptr[T any](v T) *T { return &v }
