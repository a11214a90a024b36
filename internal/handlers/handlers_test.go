package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eyeshield/config"
	"eyeshield/internal/app"
	. "eyeshield/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testServer struct {
	fiber *fiber.App
	app   *app.App
	dir   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	a, err := app.NewWithConfig(config.Config{
		GeneralEnvironment: "test",
		DatabaseDbPath:     filepath.Join(dir, "eyeshield.db"),
		PatientIDPrefix:    "ES",
		ExportDir:          filepath.Join(dir, "exports"),
		ImageDir:           filepath.Join(dir, "images"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	f := fiber.New()
	require.NoError(t, Router(f, a))

	return &testServer{fiber: f, app: a, dir: dir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.fiber.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (s *testServer) json(t *testing.T, method, target string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, raw := s.do(t, req)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp, decoded
}

func (s *testServer) screen(t *testing.T, fields map[string]string, imageName string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a})
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/screenings", &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())

	resp, raw := s.do(t, req)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp, decoded
}

func janeFields() map[string]string {
	return map[string]string{
		"name":          "Jane Doe",
		"birthdate":     "1970-05-04",
		"sex":           "Female",
		"eye":           "Both Eyes",
		"diabetesType":  "Select",
		"durationYears": "12",
		"hba1c":         "7.2",
		"prevTreatment": "no",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.json(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["environment"])
}

func TestScreeningFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.screen(t, janeFields(), "fundus.png")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	record := body["record"].(map[string]any)
	assert.Regexp(t, `^ES-\d{8}-0001$`, record["patientId"])
	assert.Equal(t, "No DR Detected", record["result"])
	assert.Equal(t, "negative", record["finding"])
	assert.Equal(t, "", record["diabetesType"])
	assert.Equal(t, "7.2%", record["hba1c"])

	images, err := os.ReadDir(filepath.Join(s.dir, "images"))
	require.NoError(t, err)
	assert.Len(t, images, 1)

	resp, body = s.json(t, http.MethodGet, "/api/records?q=jane", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, body = s.json(t, http.MethodGet, "/api/records?q=nobody", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, body["records"])

	resp, body = s.json(t, http.MethodGet, "/api/dashboard?recent=1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(0), stats["positive"])
	assert.Equal(t, float64(1), stats["imagesProcessed"])
	assert.Len(t, stats["recent"], 1)

	resp, body = s.json(t, http.MethodGet, "/api/patient-ids/next", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Regexp(t, `^ES-\d{8}-0002$`, body["patientId"])
}

func TestScreening_Rejected(t *testing.T) {
	s := newTestServer(t)

	missingName := janeFields()
	delete(missingName, "name")
	badHbA1c := janeFields()
	badHbA1c["hba1c"] = "22"
	badDuration := janeFields()
	badDuration["durationYears"] = "ten"

	tests := []struct {
		name   string
		fields map[string]string
		image  string
	}{
		{"missing name", missingName, "fundus.png"},
		{"hba1c out of range", badHbA1c, "fundus.png"},
		{"duration not a number", badDuration, "fundus.png"},
		{"no image", janeFields(), ""},
		{"wrong image type", janeFields(), "fundus.bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.screen(t, tt.fields, tt.image)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
		})
	}

	assert.Empty(t, s.app.RecordStore.Records())
	entries, _ := os.ReadDir(filepath.Join(s.dir, "images"))
	assert.Empty(t, entries)
}

func TestExports(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Jane Doe", "John Roe"} {
		fields := janeFields()
		fields["name"] = name
		resp, body := s.screen(t, fields, "fundus.jpg")
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	}

	resp, raw := s.do(t, httptest.NewRequest(http.MethodGet, "/api/records/export.csv?q=roe", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".csv")

	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ScreeningRecordFields, rows[0])
	assert.Equal(t, "John Roe", rows[1][1])

	resp, raw = s.do(t, httptest.NewRequest(http.MethodGet, "/api/records/export.xlsx", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	sheetRows, err := book.GetRows("Screenings")
	require.NoError(t, err)
	assert.Len(t, sheetRows, 3)

	resp, body := s.json(t, http.MethodPost, "/api/records/export?format=csv&q=jane", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	path := body["path"].(string)
	assert.True(t, strings.HasPrefix(path, filepath.Join(s.dir, "exports")))
	assert.FileExists(t, path)

	resp, _ = s.json(t, http.MethodPost, "/api/records/export?format=pdf", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReload(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.screen(t, janeFields(), "fundus.png")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)

	resp, body = s.json(t, http.MethodPost, "/api/records/reload", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.json(t, http.MethodPost, "/api/users", CreateUserRequest{
		Username: "drsmith", Password: "s3cret", Role: RoleClinician,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "drsmith", user["username"])
	assert.NotContains(t, user, "passwordHash")

	resp, _ = s.json(t, http.MethodPost, "/api/users", CreateUserRequest{
		Username: "drsmith", Password: "other", Role: RoleViewer,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = s.json(t, http.MethodPost, "/api/users", CreateUserRequest{
		Username: "nurse", Password: "pw", Role: Role("root"),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.json(t, http.MethodPost, "/api/users/login", LoginRequest{Username: "drsmith", Password: "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = s.json(t, http.MethodPost, "/api/users/login", LoginRequest{Username: "drsmith", Password: "s3cret"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.json(t, http.MethodPut, "/api/users/drsmith/role", roleRequest{Role: RoleAdmin})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.json(t, http.MethodPut, "/api/users/ghost/role", roleRequest{Role: RoleAdmin})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.json(t, http.MethodPut, "/api/users/drsmith/password", passwordRequest{Password: "fresh"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.json(t, http.MethodGet, "/api/users", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].(map[string]any)["role"])

	resp, _ = s.json(t, http.MethodDelete, "/api/users/drsmith", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = s.json(t, http.MethodDelete, "/api/users/drsmith", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = s.json(t, http.MethodGet, "/api/users/activity", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["activity"], 5)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestPatientIDShownAtIntakeIsSaved(t *testing.T) {
	s := newTestServer(t)

	_, preview := s.json(t, http.MethodGet, "/api/patient-ids/next", nil)
	_, again := s.json(t, http.MethodGet, "/api/patient-ids/next", nil)
	assert.Equal(t, preview["patientId"], again["patientId"], "reading the next id does not draw it")

	resp, body := s.screen(t, janeFields(), "fundus.png")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	saved := body["record"].(map[string]any)
	assert.Equal(t, preview["patientId"], saved["patientId"])

	resp, body = s.json(t, http.MethodGet, "/api/records/"+saved["patientId"].(string), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Jane Doe", body["record"].(map[string]any)["name"])

	resp, _ = s.json(t, http.MethodGet, "/api/records/ES-19990101-0001", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
