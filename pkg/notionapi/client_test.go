package notionapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/request"
	"github.com/hashicorp-forge/pagewright/pkg/request/mock"
)

const testToken = "secret-token"

func newTestServer(t *testing.T) (*mock.FakeTransport, *Client) {
	t.Helper()

	fake := mock.NewFakeTransport()
	server := httptest.NewServer(mock.NewHandler(fake, testToken))
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:    server.URL,
		AuthToken:  testToken,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		// High enough not to slow tests down.
		RequestsPerSecond: 1000,
	}, hclog.NewNullLogger())
	require.NoError(t, err)

	return fake, client
}

func paragraphs(n int) []*block.Block {
	out := make([]*block.Block, n)
	for i := range out {
		out[i] = block.Paragraph(fmt.Sprintf("p-%d", i))
	}
	return out
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{}, nil)
	assert.ErrorContains(t, err, "auth_token is required")

	c, err := NewClient(&Config{AuthToken: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, DefaultVersion, c.config.Version)
	assert.Equal(t, 30*time.Second, c.client.Timeout)
}

func TestClient_AppendAndList(t *testing.T) {
	fake, client := newTestServer(t)
	page := fake.AddPage()
	ctx := context.Background()

	resp, err := client.AppendChildren(ctx, page, paragraphs(100), "")
	require.NoError(t, err)
	assert.Len(t, gjson.GetBytes(resp, "results").Array(), 100)

	_, err = client.AppendChildren(ctx, page, paragraphs(50), "")
	require.NoError(t, err)

	children, err := client.ListChildren(ctx, page)
	require.NoError(t, err)
	assert.Len(t, children, 150)
	for _, c := range children {
		assert.Equal(t, block.TypeParagraph, c.Type)
		assert.NotEmpty(t, c.ID)
	}
	// Two pages of 100 and 50.
	assert.Equal(t, 2, fake.CallCount(mock.MethodList))
}

func TestClient_AppendAfter(t *testing.T) {
	fake, client := newTestServer(t)
	page := fake.AddPage()
	ctx := context.Background()

	resp, err := client.AppendChildren(ctx, page, []*block.Block{block.Paragraph("a"), block.Paragraph("c")}, "")
	require.NoError(t, err)
	first := gjson.GetBytes(resp, "results.0.id").String()

	_, err = client.AppendChildren(ctx, page, []*block.Block{block.Paragraph("b")}, first)
	require.NoError(t, err)

	calls := fake.Calls()
	assert.Equal(t, first, calls[len(calls)-1].After)

	tree, err := fake.Tree(page)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, "b", gjson.Get(mustJSON(t, tree[1]), "paragraph.rich_text.0.text.content").String())
}

func TestClient_SessionEndToEnd(t *testing.T) {
	fake, client := newTestServer(t)
	parent := fake.AddPage()

	session, err := request.NewSession(client)
	require.NoError(t, err)

	blocks := append(paragraphs(120),
		block.Table(true, block.TableRow("a", "b"), block.TableRow("c", "d")),
		block.ColumnList(
			block.Column(block.Toggle("deep", block.Paragraph("x"))),
			block.Column(block.Paragraph("right")),
		),
		block.Toggle("t", paragraphs(130)...),
	)

	res, err := session.CreatePage(context.Background(), &request.PageRequest{
		Parent:     request.PageParent(parent),
		Properties: request.TitleProperty("End to end"),
		Children:   blocks,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.PageID)
	assert.NoError(t, res.Append.ProtocolErrors)

	tree, err := fake.Tree(res.PageID)
	require.NoError(t, err)
	assert.JSONEq(t, mustJSON(t, blocks), mustJSON(t, tree))
}

func TestClient_RetrievePage(t *testing.T) {
	fake, client := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreatePage(ctx, &request.PagePayload{
		Parent:     request.Parent{Type: request.ParentWorkspace},
		Properties: request.TitleProperty("Hello"),
	})
	require.NoError(t, err)
	id := gjson.GetBytes(created, "id").String()

	page, err := client.RetrievePage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, gjson.GetBytes(page, "id").String())
	assert.Equal(t, "Hello", gjson.GetBytes(page, "properties.title.title.0.text.content").String())

	_, err = client.RetrievePage(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, fake.CallCount(mock.MethodCreate))
}

func TestClient_QueryDatabase(t *testing.T) {
	fake, client := newTestServer(t)
	db := fake.AddDatabase()
	ctx := context.Background()

	for i := 0; i < 130; i++ {
		_, err := client.CreatePage(ctx, &request.PagePayload{
			Parent:     request.DatabaseParent(db),
			Properties: request.TitleProperty(fmt.Sprintf("row %d", i)),
		})
		require.NoError(t, err)
	}

	pages, err := client.QueryDatabase(ctx, db, nil)
	require.NoError(t, err)
	require.Len(t, pages, 130)
	assert.Equal(t, "row 129", gjson.GetBytes(pages[129], "properties.title.title.0.text.content").String())
	assert.Equal(t, 2, fake.CallCount(mock.MethodQuery))
}

func TestClient_Retries(t *testing.T) {
	tests := map[string]struct {
		status    int
		failures  int
		wantErr   bool
		wantCalls int
	}{
		"rate limited then ok": {
			status:    http.StatusTooManyRequests,
			failures:  2,
			wantCalls: 3,
		},
		"conflict then ok": {
			status:    http.StatusConflict,
			failures:  1,
			wantCalls: 2,
		},
		"server errors exhaust retries": {
			status:    http.StatusBadGateway,
			failures:  10,
			wantErr:   true,
			wantCalls: 4,
		},
		"client error is permanent": {
			status:    http.StatusBadRequest,
			failures:  10,
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fake, client := newTestServer(t)
			page := fake.AddPage()

			failed := 0
			fake.FailOn = func(call mock.Call) error {
				if failed < tc.failures {
					failed++
					return &mock.Error{Status: tc.status, Code: "injected", Message: "injected failure"}
				}
				return nil
			}

			_, err := client.AppendChildren(context.Background(), page, paragraphs(1), "")
			if tc.wantErr {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tc.status, apiErr.Status)
				assert.Equal(t, "injected", apiErr.Code)
				assert.NotEmpty(t, apiErr.RequestID)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, fake.Calls(), tc.wantCalls)
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	fake, client := newTestServer(t)
	client.config.AuthToken = "wrong"

	_, err := client.AppendChildren(context.Background(), fake.AddPage(), paragraphs(1), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)
	assert.Empty(t, fake.Calls())
}

func TestClient_NonAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{BaseURL: server.URL, AuthToken: "x"}, nil)
	require.NoError(t, err)

	_, err = client.RetrievePage(context.Background(), "p")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "forbidden", apiErr.Message)
	assert.Equal(t, "API returned status 403: forbidden", apiErr.Error())
}

func TestClient_CanceledContext(t *testing.T) {
	fake, client := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AppendChildren(ctx, fake.AddPage(), paragraphs(1), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.Calls())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
