package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"roombooking/internal/claims"
	"roombooking/pkg/config"
)

// devflow walks a running API through the reference booking lifecycle:
// submit, conflicting submit, approve, cancel, resubmit.
func main() {
	var (
		baseURL = flag.String("base-url", "", "API base url (defaults to http://localhost<HTTP_ADDR>)")
		roomID  = flag.String("room", "R101", "room id to book")
		day     = flag.String("date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "booking date (YYYY-MM-DD, UTC)")
		useJWT  = flag.Bool("jwt", false, "send bearer tokens signed with JWT_SECRET instead of dev identity headers")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("config: %v", err)
	}
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}

	c := client{base: strings.TrimRight(*baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
	if *useJWT {
		if cfg.Auth.JWTSecret == "" {
			fail("-jwt needs JWT_SECRET in env/.env")
		}
		c.secret = cfg.Auth.JWTSecret
		c.issuer = cfg.Auth.JWTIssuer
	}

	u1 := claims.Principal{UserID: "devflow-u1", DisplayName: "Requester One", Label: "Mahasiswa"}
	u2 := claims.Principal{UserID: "devflow-u2", DisplayName: "Requester Two", Label: "Dosen"}
	a1 := claims.Principal{UserID: "devflow-a1", DisplayName: "Approver", Label: "Admin"}

	slot := func(hhmm string) string { return *day + "T" + hhmm + ":00Z" }
	body := func(from, to string) map[string]any {
		return map[string]any{"roomId": *roomID, "startTime": slot(from), "endTime": slot(to), "purpose": "devflow"}
	}

	var b1 struct{ ID, Status string }
	c.expect(u1, http.MethodPost, "/v1/bookings", body("09:00", "10:00"), http.StatusCreated, &b1)
	fmt.Printf("1. U1 booked %s 09:00-10:00: id=%s status=%s\n", *roomID, b1.ID, b1.Status)

	c.expect(u2, http.MethodPost, "/v1/bookings", body("09:30", "10:30"), http.StatusConflict, nil)
	fmt.Printf("2. U2 09:30-10:30 rejected with CONFLICT\n")

	var approved struct{ Status string }
	c.expect(a1, http.MethodPut, "/v1/bookings/"+b1.ID+"/status", map[string]any{"status": 1}, http.StatusOK, &approved)
	fmt.Printf("3. A1 approved: status=%s\n", approved.Status)

	var cancelled struct{ Status, DecisionNotes string }
	c.expect(u1, http.MethodPut, "/v1/bookings/"+b1.ID+"/status", map[string]any{"status": 3}, http.StatusOK, &cancelled)
	fmt.Printf("4. U1 cancelled: status=%s notes=%q\n", cancelled.Status, cancelled.DecisionNotes)

	var b2 struct{ ID, Status string }
	c.expect(u2, http.MethodPost, "/v1/bookings", body("09:30", "10:30"), http.StatusCreated, &b2)
	fmt.Printf("5. U2 resubmitted 09:30-10:30: id=%s status=%s\n", b2.ID, b2.Status)

	var logs struct {
		Items []struct{ BookingID, Action, ActorID, Notes string }
	}
	c.expect(a1, http.MethodGet, "/v1/bookings/room/"+*roomID+"/logs", nil, http.StatusOK, &logs)
	fmt.Printf("\nAudit trail for %s:\n", *roomID)
	for _, e := range logs.Items {
		fmt.Printf("  - booking=%s action=%s actor=%s notes=%q\n", e.BookingID, e.Action, e.ActorID, e.Notes)
	}

	fmt.Printf("\nCleanup: cancel U2's booking, then purge both:\n")
	fmt.Printf("  PUT    %s/v1/bookings/%s/status {\"status\":3}\n", c.base, b2.ID)
	fmt.Printf("  DELETE %s/v1/bookings/%s (approver)\n", c.base, b1.ID)
}

type client struct {
	base   string
	http   *http.Client
	secret string
	issuer string
}

func (c client) expect(who claims.Principal, method, path string, body any, wantStatus int, out any) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fail("encode: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		fail("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		tok, err := claims.Mint(c.secret, who, c.issuer, 10*time.Minute, time.Now())
		if err != nil {
			fail("mint: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Set("X-User-Id", who.UserID)
		req.Header.Set("X-User-Name", who.DisplayName)
		req.Header.Set("X-User-Role", who.Label)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fail("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != wantStatus {
		fail("%s %s: got %d, want %d: %s", method, path, resp.StatusCode, wantStatus, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fail("decode %s %s: %v", method, path, err)
		}
	}
}

func defaultBaseURL(httpAddr string) string {
	// httpAddr is typically ":8081" or "0.0.0.0:8081".
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
