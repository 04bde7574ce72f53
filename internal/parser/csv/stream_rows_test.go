package csv

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRC struct {
	*bytes.Reader
	closed bool
}

func newFakeRC(s string) *fakeRC { return &fakeRC{Reader: bytes.NewReader([]byte(s))} }
func (f *fakeRC) Close() error   { f.closed = true; return nil }

func makeCSV(delim rune, header []string, rows [][]string) string {
	var b bytes.Buffer
	w := stdcsv.NewWriter(&b)
	w.Comma = delim
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.String()
}

// collectRows copies every emitted row since StreamRows reuses its slice.
func collectRows(dst *[][]any) func(int, []any) error {
	return func(_ int, row []any) error {
		*dst = append(*dst, append([]any(nil), row...))
		return nil
	}
}

func TestStreamRows_HeaderMapping(t *testing.T) {
	t.Parallel()

	src := newFakeRC(makeCSV(',',
		[]string{"\uFEFFProduct ID", " Quantity ", "price", "extra"},
		[][]string{
			{" A ", "2", "10", "x"},
			{"B", "", "5.5", "y"},
		}))

	var rows [][]any
	st, err := StreamRows(context.Background(), src,
		[]string{"product_id", "price", "quantity", "date"},
		Options{Header: true}, collectRows(&rows), nil)
	require.NoError(t, err)
	assert.True(t, src.closed)
	assert.Equal(t, Stats{Rows: 2}, st)
	assert.Equal(t, [][]any{
		{"A", "10", "2", nil},
		{"B", "5.5", nil, nil},
	}, rows)
}

func TestStreamRows_Positional(t *testing.T) {
	t.Parallel()

	src := io.NopCloser(strings.NewReader("v1;v2\nw1;w2;w3\n"))
	var rows [][]any
	_, err := StreamRows(context.Background(), src, []string{"c0", "c1"},
		Options{Comma: ';'}, collectRows(&rows), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"v1", "v2"}, {"w1", "w2"}}, rows)
}

func TestStreamRows_MalformedRows(t *testing.T) {
	t.Parallel()

	doc := "product_id,quantity\nA,1\nB,2,extra\nC,\"bad\"quote\nD,4\n"

	t.Run("ignored", func(t *testing.T) {
		t.Parallel()
		var rows [][]any
		var lines []int
		st, err := StreamRows(context.Background(), io.NopCloser(strings.NewReader(doc)),
			[]string{"product_id", "quantity"}, Options{Header: true, IgnoreErrors: true},
			collectRows(&rows), func(line int, _ error) { lines = append(lines, line) })
		require.NoError(t, err)
		assert.Equal(t, Stats{Rows: 2, Errors: 2}, st)
		assert.Equal(t, [][]any{{"A", "1"}, {"D", "4"}}, rows)
		assert.Equal(t, []int{3, 4}, lines)
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()
		var rows [][]any
		_, err := StreamRows(context.Background(), io.NopCloser(strings.NewReader(doc)),
			[]string{"product_id", "quantity"}, Options{Header: true},
			collectRows(&rows), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 3")
		assert.Len(t, rows, 1)
	})
}

func TestStreamRows_EmitErrorStops(t *testing.T) {
	t.Parallel()

	stop := errors.New("stop")
	calls := 0
	_, err := StreamRows(context.Background(), io.NopCloser(strings.NewReader("a\n1\n2\n")),
		[]string{"a"}, Options{Header: true},
		func(int, []any) error { calls++; return stop }, nil)
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStreamRows_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StreamRows(ctx, io.NopCloser(strings.NewReader("a\n1\n")),
		[]string{"a"}, Options{Header: true}, func(int, []any) error { return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamRows_EmptyInput(t *testing.T) {
	t.Parallel()

	st, err := StreamRows(context.Background(), io.NopCloser(strings.NewReader("")),
		[]string{"a"}, Options{Header: true}, func(int, []any) error { return nil }, nil)
	require.NoError(t, err)
	assert.Zero(t, st.Rows)
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	src := newFakeRC("\uFEFFProduct ID,Price\nA,1\n")
	hdr, err := ReadHeader(context.Background(), src, Options{Header: true})
	require.NoError(t, err)
	assert.True(t, src.closed)
	assert.Equal(t, []string{"product_id", "price"}, hdr)

	hdr, err = ReadHeader(context.Background(), newFakeRC("x,y,z\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"column0", "column1", "column2"}, hdr)

	_, err = ReadHeader(context.Background(), newFakeRC(""), Options{Header: true})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestNormalizeHeaderAndUnion(t *testing.T) {
	t.Parallel()

	// "e" followed by a combining acute accent composes to a single rune.
	got := NormalizeHeader([]string{"Cafe\u0301 Name", "", "QTY"})
	assert.Equal(t, []string{"caf\u00e9_name", "column1", "qty"}, got)

	assert.Equal(t,
		[]string{"product_id", "quantity", "region", "price"},
		Union([]string{"product_id", "quantity"}, []string{"region", "product_id", "price"}))
}
