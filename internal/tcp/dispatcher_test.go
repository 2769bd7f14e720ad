package tcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/homecare/backend/internal/models"
	"github.com/example/homecare/backend/internal/service"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Staff{},
		&models.ServiceRequest{},
		&models.Booking{},
		&models.InspectionReport{},
		&models.WorkLog{},
		&models.Review{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	workflow := service.NewWorkflowService(db, nil)
	queries := service.NewQueryService(db)
	return NewDispatcher(workflow, queries), db
}

func seedBooking(t *testing.T, db *gorm.DB, status models.BookingStatus) *models.Booking {
	t.Helper()
	staff := &models.Staff{Name: "Dispatch Staff"}
	if err := db.Create(staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	booking := &models.Booking{Status: status, StaffID: staff.ID}
	if err := db.Create(booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func rawData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestDispatchUnknownType(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	response, ok := dispatcher.Dispatch(context.Background(), Request{Type: "STAFF_DO_NOTHING"})
	if ok {
		t.Fatalf("unknown type dispatched successfully")
	}
	errResp, isErr := response.(ErrorResponse)
	if !isErr {
		t.Fatalf("response is %T, want ErrorResponse", response)
	}
	if errResp.Error != service.CodeUnknownRequestType {
		t.Fatalf("error = %s, want %s", errResp.Error, service.CodeUnknownRequestType)
	}
	if errResp.StatusCode != 400 {
		t.Fatalf("statusCode = %d, want 400", errResp.StatusCode)
	}
}

func TestDispatchRejectsMissingData(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	for _, data := range []json.RawMessage{nil, json.RawMessage("null"), json.RawMessage(`"text"`)} {
		response, ok := dispatcher.Dispatch(context.Background(), Request{
			Type: OpCheckOut,
			Data: data,
		})
		if ok {
			t.Fatalf("data %q dispatched successfully", data)
		}
		errResp := response.(ErrorResponse)
		if errResp.Error != service.CodeInvalidPayload {
			t.Fatalf("data %q: error = %s, want %s", data, errResp.Error, service.CodeInvalidPayload)
		}
		if errResp.StatusCode != 422 {
			t.Fatalf("data %q: statusCode = %d, want 422", data, errResp.StatusCode)
		}
	}
}

func TestDispatchRejectsNonPositiveIdentifier(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	response, ok := dispatcher.Dispatch(context.Background(), Request{
		Type: OpCreateWorkLog,
		Data: rawData(t, map[string]any{"staffId": 0, "bookingId": 7}),
	})
	if ok {
		t.Fatalf("zero staffId dispatched successfully")
	}
	errResp := response.(ErrorResponse)
	if errResp.Error != service.CodeInvalidPayload {
		t.Fatalf("error = %s, want %s", errResp.Error, service.CodeInvalidPayload)
	}
	if len(errResp.Message.Path) == 0 {
		t.Fatalf("validation error has no path")
	}
}

func TestDispatchCreateInspectionReportSuccessEnvelope(t *testing.T) {
	dispatcher, db := newTestDispatcher(t)
	booking := seedBooking(t, db, models.BookingStatusConfirmed)

	response, ok := dispatcher.Dispatch(context.Background(), Request{
		Type: OpCreateInspectionReport,
		Data: rawData(t, map[string]any{
			"bookingId": booking.ID,
			"staffId":   booking.StaffID,
			"images":    []string{"http://x/1.jpg"},
		}),
	})
	if !ok {
		t.Fatalf("create dispatched with error: %+v", response)
	}
	success, isSuccess := response.(SuccessResponse)
	if !isSuccess {
		t.Fatalf("response is %T, want SuccessResponse", response)
	}
	if !success.Success || success.Code != "SUCCESS" || success.StatusCode != 200 {
		t.Fatalf("malformed success envelope: %+v", success)
	}
	report, isReport := success.Data.(*models.InspectionReport)
	if !isReport {
		t.Fatalf("data is %T, want *models.InspectionReport", success.Data)
	}
	if report.BookingID != booking.ID {
		t.Fatalf("data.bookingId = %d, want %d", report.BookingID, booking.ID)
	}
}

func TestDispatchDuplicateReportErrorEnvelope(t *testing.T) {
	dispatcher, db := newTestDispatcher(t)
	booking := seedBooking(t, db, models.BookingStatusConfirmed)

	payload := rawData(t, map[string]any{
		"bookingId": booking.ID,
		"staffId":   booking.StaffID,
		"images":    []string{"http://x/1.jpg"},
	})
	if _, ok := dispatcher.Dispatch(context.Background(), Request{Type: OpCreateInspectionReport, Data: payload}); !ok {
		t.Fatalf("first create failed")
	}

	response, ok := dispatcher.Dispatch(context.Background(), Request{Type: OpCreateInspectionReport, Data: payload})
	if ok {
		t.Fatalf("duplicate create succeeded")
	}
	errResp := response.(ErrorResponse)
	if errResp.StatusCode != 400 {
		t.Fatalf("statusCode = %d, want 400", errResp.StatusCode)
	}
	if errResp.Error != service.CodeInspectionReportExists {
		t.Fatalf("error = %s, want %s", errResp.Error, service.CodeInspectionReportExists)
	}
	if errResp.Timestamp == "" {
		t.Fatalf("error envelope has no timestamp")
	}
}

func TestDispatchCheckInOnCancelledBooking(t *testing.T) {
	dispatcher, db := newTestDispatcher(t)
	booking := seedBooking(t, db, models.BookingStatusCancelled)

	response, ok := dispatcher.Dispatch(context.Background(), Request{
		Type: OpCreateWorkLog,
		Data: rawData(t, map[string]any{"staffId": booking.StaffID, "bookingId": booking.ID}),
	})
	if ok {
		t.Fatalf("check-in on cancelled booking succeeded")
	}
	errResp := response.(ErrorResponse)
	if errResp.Error != service.CodeInvalidBookingStatusForCheckIn {
		t.Fatalf("error = %s, want %s", errResp.Error, service.CodeInvalidBookingStatusForCheckIn)
	}
}

func TestDispatchGetBookingsValidatesDate(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	response, ok := dispatcher.Dispatch(context.Background(), Request{
		Type: OpGetBookings,
		Data: rawData(t, map[string]any{"staffId": 1, "date": "29-08-2026"}),
	})
	if ok {
		t.Fatalf("malformed date dispatched successfully")
	}
	errResp := response.(ErrorResponse)
	if errResp.Error != service.CodeInvalidPayload {
		t.Fatalf("error = %s, want %s", errResp.Error, service.CodeInvalidPayload)
	}
}
