// Package posegraph defines the pose-graph collaborator the edge
// registration decider consumes: a set of nodes, their poses, and the
// ability to insert relative-pose edges between them. The decider only
// ever borrows a Graph; it never owns or outlives one.
package posegraph

import (
	"sync"

	"github.com/viam-labs/graphslam-core/spatialmath"
)

// NodeID is an opaque, monotonically-assigned node identifier. Nodes are
// never deleted during decider operation.
type NodeID uint64

// Graph is the pose-graph collaborator described in spec.md §3/§6: the
// five operations the decider needs, nothing more. Implementations are
// trusted to tolerate or deduplicate repeated edge inserts.
type Graph interface {
	// NodeCount returns the number of live nodes; strictly non-decreasing.
	NodeCount() int
	// Node returns the pose estimate for node i.
	Node(id NodeID) spatialmath.Pose3D
	// DistanceTo returns the Euclidean translational distance between two nodes.
	DistanceTo(a, b NodeID) float64
	// InsertEdge appends a relative-pose edge; no deduplication required.
	InsertEdge(from, to NodeID, constraint spatialmath.Pose2D)
	// AllNodes returns a snapshot of every live NodeID.
	AllNodes() map[NodeID]struct{}
}

// Edge is a single relative-pose constraint between two nodes.
type Edge struct {
	From, To   NodeID
	Constraint spatialmath.Pose2D
}

// MemGraph is an in-memory Graph, grown from the locking discipline of
// the toolkit's SquareArea (every mutator takes the same mutex). It is a
// reference/test collaborator, not a production graph database: the real
// pose-graph storage and optimization layer is out of scope per spec.md §1.
type MemGraph struct {
	mu    sync.Mutex
	nodes []spatialmath.Pose3D
	edges []Edge
}

// NewMemGraph returns an empty graph.
func NewMemGraph() *MemGraph {
	return &MemGraph{}
}

// AddNode appends a new node at the given pose and returns its NodeID.
func (g *MemGraph) AddNode(pose spatialmath.Pose3D) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = append(g.nodes, pose)
	return NodeID(len(g.nodes) - 1)
}

// NodeCount implements Graph.
func (g *MemGraph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Node implements Graph.
func (g *MemGraph) Node(id NodeID) spatialmath.Pose3D {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id]
}

// DistanceTo implements Graph.
func (g *MemGraph) DistanceTo(a, b NodeID) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[a].DistanceTo(g.nodes[b])
}

// InsertEdge implements Graph.
func (g *MemGraph) InsertEdge(from, to NodeID, constraint spatialmath.Pose2D) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, Edge{From: from, To: to, Constraint: constraint})
}

// AllNodes implements Graph.
func (g *MemGraph) AllNodes() map[NodeID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[NodeID]struct{}, len(g.nodes))
	for i := range g.nodes {
		out[NodeID(i)] = struct{}{}
	}
	return out
}

// Edges returns a snapshot of every inserted edge, in insertion order.
// Test-only convenience; not part of the Graph interface.
func (g *MemGraph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}
