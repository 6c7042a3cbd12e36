package gekko2d

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gekko3d/gekko2d/spritert/rt/core"
)

type AssetId string

// SpriteSheet is an image split into Cols x Rows equally sized tiles. A plain
// texture is a 1 x 1 sheet.
type SpriteSheet struct {
	Path string
	Cols int
	Rows int
}

// Tile returns the UV rectangle of tile (col, row). Out of range tiles panic.
func (s SpriteSheet) Tile(col, row int) core.SpriteData {
	if col < 0 || col >= s.Cols || row < 0 || row >= s.Rows {
		panic(fmt.Sprintf("tile (%d, %d) outside %dx%d sheet %s", col, row, s.Cols, s.Rows, s.Path))
	}
	return core.GridCell(s.Cols, s.Rows, col, row)
}

// TileCount is Cols * Rows.
func (s SpriteSheet) TileCount() int { return s.Cols * s.Rows }

// AssetServer names sprite sheets by AssetId. Image decoding and upload
// happen in the renderer the first time a sheet is drawn.
type AssetServer struct {
	mu     sync.RWMutex
	root   string
	sheets map[AssetId]SpriteSheet
	order  []AssetId
}

type AssetServerModule struct {
	// Root is the directory image paths are resolved against.
	Root string
}

func (mod AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(newAssetServer(mod.Root))
}

func newAssetServer(root string) *AssetServer {
	return &AssetServer{
		root:   root,
		sheets: make(map[AssetId]SpriteSheet),
	}
}

func (server *AssetServer) Root() string { return server.root }

// LoadTexture registers path as a single-tile sheet.
func (server *AssetServer) LoadTexture(path string) AssetId {
	return server.LoadSpriteSheet(path, 1, 1)
}

// LoadSpriteSheet registers path as a cols x rows atlas. Every call returns a
// new id; sheets sharing a path share one GPU texture.
func (server *AssetServer) LoadSpriteSheet(path string, cols, rows int) AssetId {
	if cols <= 0 || rows <= 0 {
		panic(fmt.Sprintf("sprite sheet %s: invalid grid %dx%d", path, cols, rows))
	}
	id := makeAssetId()

	server.mu.Lock()
	defer server.mu.Unlock()
	server.sheets[id] = SpriteSheet{Path: path, Cols: cols, Rows: rows}
	server.order = append(server.order, id)
	return id
}

func (server *AssetServer) SpriteSheet(id AssetId) (SpriteSheet, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	sheet, ok := server.sheets[id]
	return sheet, ok
}

// Paths lists the distinct image paths of all sheets in registration order.
func (server *AssetServer) Paths() []string {
	server.mu.RLock()
	defer server.mu.RUnlock()
	paths := make([]string, 0, len(server.order))
	for _, id := range server.order {
		if p := server.sheets[id].Path; !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return paths
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
