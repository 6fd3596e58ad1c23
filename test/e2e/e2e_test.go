//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/stemsi/curricuforge/internal/model"
	"github.com/stemsi/curricuforge/internal/view"
)

const (
	defaultBaseURL           = "http://localhost:8080"
	defaultGenerationTimeout = 3 * time.Minute
)

var (
	baseURL           string
	expectSuccess     bool
	generationTimeout time.Duration
	client            *http.Client
)

// Runs against a live server, e.g.
//
//	BASE_URL=http://localhost:8080 go test -tags e2e ./test/e2e
//
// Set E2E_EXPECT_SUCCESS=1 when the server has a working Gemini key.
func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	expectSuccess = os.Getenv("E2E_EXPECT_SUCCESS") == "1"
	generationTimeout = defaultGenerationTimeout
	if v := os.Getenv("E2E_GENERATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Printf("Invalid E2E_GENERATION_TIMEOUT: %v\n", err)
			os.Exit(1)
		}
		generationTimeout = d
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}
	client = &http.Client{Timeout: 10 * time.Second, Jar: jar}

	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Health
	t.Run("Health", func(t *testing.T) {
		resp, err := get("/health")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 2: Form options
	t.Run("Options", func(t *testing.T) {
		resp, err := get("/api/v1/forge/options")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var opts model.FormOptions
		decodeData(t, resp, &opts)
		if len(opts.Levels) != len(model.Levels) || opts.Defaults.Level != model.LevelUndergraduate {
			t.Fatalf("unexpected options: %+v", opts)
		}
	})

	// Step 3: A fresh session starts Idle
	t.Run("InitialState", func(t *testing.T) {
		if snap := state(t); snap.Status != view.StatusIdle {
			t.Fatalf("status=%s", snap.Status)
		}
	})

	// Step 4: Invalid input is rejected without leaving Idle
	t.Run("InvalidSubmit", func(t *testing.T) {
		resp, err := post("/api/v1/forge/generate", map[string]string{"subject": " "})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var body envelope
		decodeJSON(t, resp, &body)
		if resp.StatusCode != http.StatusBadRequest || body.Error == nil || body.Error.Fields["subject"] == "" {
			t.Fatalf("status %d: %+v", resp.StatusCode, body.Error)
		}
		if snap := state(t); snap.Status != view.StatusIdle {
			t.Fatalf("status=%s", snap.Status)
		}
	})

	// Step 5: Submit
	t.Run("Submit", func(t *testing.T) {
		resp, err := post("/api/v1/forge/generate", scenario())
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 6: Wait for the outcome
	t.Run("Outcome", func(t *testing.T) {
		deadline := time.Now().Add(generationTimeout)
		for {
			snap := state(t)
			switch snap.Status {
			case view.StatusViewing:
				if snap.Curriculum == nil || len(snap.Curriculum.Modules) == 0 {
					t.Fatalf("viewing without modules: %+v", snap)
				}
				t.Logf("Curriculum %q with %d modules", snap.Curriculum.Title, len(snap.Curriculum.Modules))
				return
			case view.StatusError:
				if expectSuccess {
					t.Fatalf("generation failed: %s", snap.Error)
				}
				if snap.Error == "" {
					t.Fatal("error state without message")
				}
				t.Logf("Generation failed as allowed: %s", snap.Error)
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("still %s after %s", snap.Status, generationTimeout)
			}
			time.Sleep(2 * time.Second)
		}
	})

	// Step 7: Reset back to the form
	t.Run("Reset", func(t *testing.T) {
		resp, err := post("/api/v1/forge/reset", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		var snap view.Snapshot
		decodeData(t, resp, &snap)
		if resp.StatusCode != http.StatusOK || snap.Status != view.StatusIdle {
			t.Fatalf("status %d: %+v", resp.StatusCode, snap)
		}
	})

	// Step 8: The page and the stream agree on the state
	t.Run("PageAndStream", func(t *testing.T) {
		resp, err := get("/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		page := readBody(resp)
		resp.Body.Close()
		if !strings.Contains(page, `data-status="IDLE"`) {
			t.Fatalf("page not idle")
		}

		conn := dialStream(t)
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg struct {
			Event string        `json:"event"`
			State view.Snapshot `json:"state"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Event != "state" || msg.State.Status != view.StatusIdle {
			t.Fatalf("first frame: %+v", msg)
		}
	})
}

func scenario() model.GenerationParams {
	return model.GenerationParams{
		Subject:                "Generative AI Engineering",
		Level:                  model.LevelUndergraduate,
		Duration:               "12 Weeks",
		IndustryFocus:          "Modern Data Stack",
		OptimizationPreference: model.OptimizeAcademicRigor,
	}
}

// Helpers

func state(t *testing.T) view.Snapshot {
	t.Helper()
	resp, err := get("/api/v1/forge/state")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var snap view.Snapshot
	decodeData(t, resp, &snap)
	return snap
}

func dialStream(t *testing.T) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	header := http.Header{}
	for _, c := range client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/v1/forge/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func post(path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest("POST", baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) {
	var body envelope
	decodeJSON(t, resp, &body)
	if err := json.Unmarshal(body.Data, v); err != nil {
		t.Fatalf("data decode: %v", err)
	}
}
