package hierarchy

import (
	"context"
	"database/sql"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	_ "modernc.org/sqlite"
)

func animals() map[string][]string {
	return map[string][]string{
		"Thing":  {"Animal", "Plant"},
		"Animal": {"Mammal", "Bird"},
		"Mammal": {"Dog", "Cat"},
		"Pet":    {"Dog", "Cat"},
	}
}

func TestStaticParentsAreTransitive(t *testing.T) {
	h := NewStatic(animals())

	assert.Equal(t, []string{"Animal", "Mammal", "Pet", "Thing"}, h.Parents("Dog"))
	assert.Equal(t, []string{"Animal", "Thing"}, h.Parents("Bird"))
	assert.Empty(t, h.Parents("Thing"))
	assert.Empty(t, h.Parents("Unknown"))
}

func TestStaticChildrenAreDirect(t *testing.T) {
	h := NewStatic(animals())

	assert.Equal(t, []string{"Bird", "Mammal"}, h.Children("Animal"))
	assert.Empty(t, h.Children("Dog"))
}

func TestStaticReturnsCopies(t *testing.T) {
	h := NewStatic(animals())
	p := h.Parents("Dog")
	p[0] = "mutated"
	assert.Equal(t, "Animal", h.Parents("Dog")[0])
}

func TestNoneIsEmpty(t *testing.T) {
	h := None()
	assert.Empty(t, h.Parents("Anything"))
	assert.Empty(t, h.Children("Anything"))
}

func TestIsA(t *testing.T) {
	h := NewStatic(animals())

	assert.True(t, IsA(h, "Dog", "Dog"))
	assert.True(t, IsA(h, "Dog", "Thing"))
	assert.False(t, IsA(h, "Thing", "Dog"))
	assert.True(t, IsA(nil, "Dog", "Dog"))
	assert.False(t, IsA(nil, "Dog", "Animal"))
	assert.True(t, IsAny(h, "Cat", []string{"Plant", "Pet"}))
	assert.False(t, IsAny(h, "Cat", []string{"Plant", "Bird"}))
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.yaml")
	require.NoError(t, os.WriteFile(path, []byte("children:\n  Letter: [Vowel, Consonant]\n  Vowel: [A]\n"), 0o644))

	h, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Letter", "Vowel"}, h.Parents("A"))

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// #region sqlstore-tests
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLStoreEdges(t *testing.T) {
	s, err := NewSQLStore(setupTestDB(t))
	require.NoError(t, err)

	require.NoError(t, s.AddEdge("Animal", "Mammal"))
	require.NoError(t, s.AddEdge("Mammal", "Dog"))
	require.NoError(t, s.AddEdge("Mammal", "Dog"))
	require.NoError(t, s.AddEdge("Pet", "Dog"))
	assert.Error(t, s.AddEdge("Dog", "Dog"))

	kids, err := s.Children("Mammal")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dog"}, kids)

	parents, err := s.Parents("Dog")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Mammal", "Pet", "Animal"}, parents)

	require.NoError(t, s.RemoveConcept("Pet"))
	parents, err = s.Parents("Dog")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Mammal", "Animal"}, parents)
}

func TestSQLStoreImportAndSnapshot(t *testing.T) {
	s, err := NewSQLStore(setupTestDB(t))
	require.NoError(t, err)

	n, err := s.Import(animals())
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = s.Import(animals())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, NewStatic(animals()).Parents("Cat"), snap.Parents("Cat"))
}

// #endregion sqlstore-tests

// #region remote-tests
func startServer(t *testing.T, h *Static) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterHierarchyServer(srv, NewServer(h))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClientWithConn(conn)
}

func TestRemoteRoundTrip(t *testing.T) {
	client := startServer(t, NewStatic(animals()))
	ctx := context.Background()

	parents, err := client.Parents(ctx, "Dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal", "Mammal", "Pet", "Thing"}, parents)

	kids, err := client.Children(ctx, "Thing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal", "Plant"}, kids)

	snap, err := client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bird", "Mammal"}, snap.Children("Animal"))
	assert.Equal(t, parents, snap.Parents("Dog"))
}

func TestRemoteRejectsEmptyConcept(t *testing.T) {
	client := startServer(t, None())

	_, err := client.Parents(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

// #endregion remote-tests
