package mailinglist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"assoc-backend/internal/config"
)

// Connector talks to the mailing-list server.
type Connector interface {
	Subscribers(list string) ([]string, error)
	Subscribe(list, email string) error
	Unsubscribe(list, email string) error
}

// apiConnector drives the list server's REST admin API.
type apiConnector struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewConnector(cfg *config.Config) Connector {
	return &apiConnector{
		baseURL: cfg.ListAPIBaseURL,
		apiKey:  cfg.ListAPIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *apiConnector) Subscribers(list string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/lists/%s/members", a.baseURL, url.PathEscape(list)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list server answered %s", resp.Status)
	}

	var body struct {
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Members, nil
}

func (a *apiConnector) Subscribe(list, email string) error {
	return a.memberAction(http.MethodPut, list, email)
}

func (a *apiConnector) Unsubscribe(list, email string) error {
	return a.memberAction(http.MethodDelete, list, email)
}

func (a *apiConnector) memberAction(method, list, email string) error {
	payload, _ := json.Marshal(map[string]string{"email": email})
	req, err := http.NewRequest(method,
		fmt.Sprintf("%s/lists/%s/members", a.baseURL, url.PathEscape(list)),
		bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("list server answered %s for %s %s", resp.Status, method, email)
	}
	return nil
}
