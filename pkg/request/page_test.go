package request_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/limits"
	"github.com/hashicorp-forge/pagewright/pkg/request"
	fake "github.com/hashicorp-forge/pagewright/pkg/request/mock"
)

func TestCreatePage_InlinesLeadingBlocks(t *testing.T) {
	f := fake.NewFakeTransport()
	parent := f.AddPage()
	s := newSession(t, f)

	blocks := append(paragraphs("p", 150), block.Toggle("t", paragraphs("tc", 2)...))
	res, err := s.CreatePage(context.Background(), &request.PageRequest{
		Parent:     request.PageParent(parent),
		Properties: request.TitleProperty("Notes"),
		Icon:       request.EmojiIcon("📝"),
		Children:   blocks,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.PageID)
	assert.Equal(t, 2, res.APICallCount)
	require.NotNil(t, res.Append)
	assert.Equal(t, 1, res.Append.APICallCount)
	assert.Len(t, res.Append.Responses, 1)
	assert.NoError(t, res.Append.ProtocolErrors)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, fake.MethodCreate, calls[0].Method)
	assert.Len(t, calls[0].Blocks, 100)
	assert.Equal(t, res.PageID, calls[1].ParentID)
	assert.Len(t, calls[1].Blocks, 51)

	tree, err := f.Tree(res.PageID)
	require.NoError(t, err)
	assert.Equal(t, blocks, tree)
}

func TestCreatePage_StopsAtNestedBlock(t *testing.T) {
	f := fake.NewFakeTransport()
	parent := f.AddPage()
	s := newSession(t, f)

	blocks := []*block.Block{
		block.Paragraph("intro"),
		block.Toggle("t", block.Paragraph("inside")),
		block.Paragraph("outro"),
	}
	res, err := s.CreatePage(context.Background(), &request.PageRequest{
		Parent:   request.PageParent(parent),
		Children: blocks,
	})
	require.NoError(t, err)

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []*block.Block{blocks[0]}, calls[0].Blocks)
	assert.Equal(t, blocks[1:], calls[1].Blocks)

	tree, err := f.Tree(res.PageID)
	require.NoError(t, err)
	assert.Equal(t, blocks, tree)
}

func TestCreatePage_PayloadBudget(t *testing.T) {
	policy := limits.Policy{MaxPayloadBytes: 2000}
	f := fake.NewFakeTransport()
	f.Policy = policy.WithDefaults()
	parent := f.AddPage()
	s := newSession(t, f, request.WithPolicy(policy))

	blocks := paragraphs("p", 60)
	res, err := s.CreatePage(context.Background(), &request.PageRequest{
		Parent:   request.PageParent(parent),
		Children: blocks,
	})
	require.NoError(t, err)

	create := f.Calls()[0]
	assert.NotEmpty(t, create.Blocks)
	assert.Less(t, len(create.Blocks), 20)
	assert.LessOrEqual(t, block.PayloadBytes(create.Blocks), 2000)

	tree, err := f.Tree(res.PageID)
	require.NoError(t, err)
	assert.Equal(t, blocks, tree)
}

func TestCreatePage_NoChildren(t *testing.T) {
	f := fake.NewFakeTransport()
	s := newSession(t, f)

	res, err := s.CreatePage(context.Background(), &request.PageRequest{
		Parent:     request.Parent{Type: request.ParentWorkspace},
		Properties: request.TitleProperty("Top level"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PageID)
	assert.Equal(t, 1, res.APICallCount)
	assert.Equal(t, 0, res.Append.APICallCount)
	assert.Empty(t, res.Append.Responses)
}

func TestCreatePage_MissingParent(t *testing.T) {
	tests := map[string]*request.PageRequest{
		"nil request":       nil,
		"no parent":         {Children: paragraphs("p", 1)},
		"no id":             {Parent: request.Parent{Type: request.ParentPage}},
		"unknown type":      {Parent: request.Parent{Type: "block_id", ID: "x"}},
		"database no id":    {Parent: request.DatabaseParent("")},
		"data source no id": {Parent: request.Parent{Type: request.ParentDataSource}},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			f := fake.NewFakeTransport()
			s := newSession(t, f)

			_, err := s.CreatePage(context.Background(), req)
			assert.ErrorIs(t, err, request.ErrMissingParent)
			assert.ErrorIs(t, err, block.ErrInvalidStructure)
			assert.Empty(t, f.Calls())
		})
	}
}

func TestCreatePage_MissingCreatedID(t *testing.T) {
	noID := request.WithCreatedIDFunc(func(json.RawMessage) (string, error) {
		return "", errors.New("no id here")
	})

	t.Run("with remaining blocks", func(t *testing.T) {
		f := fake.NewFakeTransport()
		parent := f.AddPage()
		s := newSession(t, f, noID)

		_, err := s.CreatePage(context.Background(), &request.PageRequest{
			Parent:   request.PageParent(parent),
			Children: []*block.Block{block.Toggle("t", block.Paragraph("c"))},
		})
		assert.ErrorIs(t, err, request.ErrProtocolMismatch)
		assert.Len(t, f.Calls(), 1)
	})

	t.Run("nothing left to append", func(t *testing.T) {
		f := fake.NewFakeTransport()
		parent := f.AddPage()
		s := newSession(t, f, noID)

		res, err := s.CreatePage(context.Background(), &request.PageRequest{
			Parent:   request.PageParent(parent),
			Children: paragraphs("p", 3),
		})
		require.NoError(t, err)
		assert.Empty(t, res.PageID)
		assert.Equal(t, 1, res.APICallCount)
	})
}

func TestCreatePage_TransportFailure(t *testing.T) {
	f := fake.NewFakeTransport()
	s := newSession(t, f)

	_, err := s.CreatePage(context.Background(), &request.PageRequest{
		Parent:   request.PageParent("does-not-exist"),
		Children: paragraphs("p", 3),
	})
	require.Error(t, err)

	var apiErr *fake.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "object_not_found", apiErr.Code)
}

func TestParent_JSON(t *testing.T) {
	tests := map[string]struct {
		parent request.Parent
		want   string
	}{
		"page":      {request.PageParent("p1"), `{"type":"page_id","page_id":"p1"}`},
		"database":  {request.DatabaseParent("d1"), `{"type":"database_id","database_id":"d1"}`},
		"workspace": {request.Parent{Type: request.ParentWorkspace}, `{"type":"workspace","workspace":true}`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(tc.parent)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))

			var got request.Parent
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tc.parent.Type, got.Type)
			assert.Equal(t, tc.parent.ID, got.ID)
		})
	}
}
