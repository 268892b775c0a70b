package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreGetUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"user_id", "access_token", "refresh_token", "service_area",
		"search_schedule", "minimum_price", "areas", "arrival_time", "time_zone",
	}).AddRow(
		"u1", "token-1", "refresh-1", "area-blob",
		[]byte(`{"monday":[{"start":"10:00","end":"18:00"}]}`),
		1000.0, []byte(`["A1","B2"]`), int64(600), "America/New_York",
	)
	mock.ExpectQuery("SELECT user_id, access_token").WithArgs("u1").WillReturnRows(rows)

	profile, err := NewPGStore(db).GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if profile.UserID != "u1" || profile.AccessToken != "token-1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(profile.SearchSchedule["monday"]) != 1 {
		t.Fatalf("schedule not decoded: %+v", profile.SearchSchedule)
	}
	if len(profile.Areas) != 2 || profile.Areas[0] != "A1" {
		t.Fatalf("areas not decoded: %+v", profile.Areas)
	}
	if profile.ArrivalLeadTime != 600 {
		t.Fatalf("arrival lead time not decoded: %d", profile.ArrivalLeadTime)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreGetUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT user_id, access_token").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = NewPGStore(db).GetUser(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreSetUserCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET access_token").
		WithArgs("u1", "new-token", "new-area").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPGStore(db).SetUserCredentials(context.Background(), "u1", "new-token", "new-area"); err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreTouchUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET last_iteration").
		WithArgs("u1", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPGStore(db).TouchUser(context.Background(), "u1", 1700000000); err != nil {
		t.Fatalf("touch user: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
