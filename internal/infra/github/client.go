package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SavagePirate/assetdeploy/internal/domain"
	"github.com/SavagePirate/assetdeploy/internal/infra/repos/runcache"
)

// Client talks to the GitHub Actions REST API with a static bearer
// token. The token is injected at construction; the client never reads
// the environment.
type Client struct {
	token  string
	client *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthorizationHeader returns the header line the remote download
// command needs to fetch the artifact with the same credential.
func (c *Client) AuthorizationHeader() string {
	return "Authorization: token " + c.token
}

type workflowRunsResponse struct {
	WorkflowRuns []workflowRun `json:"workflow_runs"`
}

type workflowRun struct {
	ID           int64      `json:"id"`
	Status       string     `json:"status"`
	Conclusion   string     `json:"conclusion"`
	ArtifactsURL string     `json:"artifacts_url"`
	HTMLURL      string     `json:"html_url"`
	HeadCommit   headCommit `json:"head_commit"`
}

type headCommit struct {
	ID string `json:"id"`
}

type artifactsResponse struct {
	Artifacts []*domain.Artifact `json:"artifacts"`
}

// FetchRuns retrieves one page of the workflow run listing and the URL
// of the next (older) page from the RFC 5988 Link header.
func (c *Client) FetchRuns(url string) (*runcache.Page, error) {
	body, links, err := c.get(url)
	if err != nil {
		return nil, err
	}

	var res workflowRunsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding workflow runs: %w", err)
	}

	now := time.Now()
	page := &runcache.Page{Next: links["next"]}
	for _, run := range res.WorkflowRuns {
		page.Runs = append(page.Runs, &domain.WorkflowRun{
			ID:           run.ID,
			HeadCommit:   run.HeadCommit.ID,
			Status:       domain.RunStatus(run.Status),
			Conclusion:   domain.Conclusion(run.Conclusion),
			ArtifactsURL: run.ArtifactsURL,
			HTMLURL:      run.HTMLURL,
			SyncedAt:     now,
		})
	}

	return page, nil
}

// FetchArtifacts lists the artifacts of one workflow run.
func (c *Client) FetchArtifacts(url string) ([]*domain.Artifact, error) {
	body, _, err := c.get(url)
	if err != nil {
		return nil, err
	}

	var res artifactsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding artifacts: %w", err)
	}

	return res.Artifacts, nil
}

func (c *Client) get(url string) ([]byte, map[string]string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected response: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, parseLinks(resp.Header.Get("Link")), nil
}

// parseLinks extracts rel -> URL pairs from a Link header of the form
// <https://...&page=2>; rel="next", <https://...&page=9>; rel="last".
func parseLinks(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}

		url := strings.Trim(strings.TrimSpace(sections[0]), "<>")
		for _, section := range sections[1:] {
			section = strings.TrimSpace(section)
			if rel, ok := strings.CutPrefix(section, `rel="`); ok {
				links[strings.TrimSuffix(rel, `"`)] = url
			}
		}
	}
	return links
}
