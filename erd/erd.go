// Package erd implements the edge registration decider: a stateful,
// single-threaded decision loop that watches a stream of range-scan
// observations and a growing pose graph, and decides when to register a
// relative-pose edge between two graph nodes. It is a reactive component:
// all work happens inside Update, driven by one caller.
package erd

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/viam-labs/graphslam-core/logging"
	"github.com/viam-labs/graphslam-core/posegraph"
	"github.com/viam-labs/graphslam-core/scan"
	"github.com/viam-labs/graphslam-core/spatialmath"
)

// DefaultInvalidFormatThreshold is how many consecutive unrecognised
// observation steps the decider tolerates before logging a diagnostic and
// disarming the dataset-sanity check.
const DefaultInvalidFormatThreshold = 20

// initialTotalNodes is the node count assumed by the pipeline's two-node
// graph skeleton before any scan is ever registered.
const initialTotalNodes = 2

// ICPInfo is the result metadata an ICPSolver reports alongside a relative
// pose; the decider only ever consumes Goodness (spec.md §6).
type ICPInfo struct {
	Goodness float64
}

// ICPSolver is the black-box scan matcher the decider calls to propose a
// relative-pose edge between two nodes. The concrete solver (point-to-plane,
// point-to-point, whatever) is out of scope; this is the only surface the
// decider touches.
type ICPSolver interface {
	// Align matches curr against prev (either may be a *scan.Scan2D or
	// *scan.Scan3D; the solver is expected to reject a kind mismatch),
	// given an optional initial relative-pose estimate, returning the
	// relative pose of curr with respect to prev and a goodness info block.
	Align(prev, curr interface{}, initial *spatialmath.Pose2D) (relativePose spatialmath.Pose2D, info ICPInfo, err error)
}

// ConfigurableICPSolver is an ICPSolver that also accepts an "ICP"-sectioned
// configuration block, the way the underlying range scanner in the original
// pipeline is configured alongside the decider (spec.md §6).
type ConfigurableICPSolver interface {
	ICPSolver
	LoadConfig(source *ini.File, section string) error
}

// Scene is the subset of a 3D visualisation scene graph the decider
// touches: named-object upsert under a scoped lock. The concrete rendering
// backend (OpenGL, whatever) is out of scope; Display/Scene exist only so
// Update never has to special-case "no display bound".
type Scene interface {
	// Upsert creates or replaces a named scene object.
	Upsert(name string, obj interface{})
}

// Display is the driver-owned visualisation handle the decider borrows.
// Every visual refresh acquires the scene under lock, mutates, releases,
// and forces a repaint; nested Acquire is forbidden.
type Display interface {
	Acquire() Scene
	Release()
	ForceRepaint()
}

// ContractViolation marks a precondition violation the caller controls
// (Update before SetGraphPtr, InitializeVisuals or UpdateVisuals before
// LoadConfig), as opposed to a benign domain condition. Propagation policy:
// these are fatal, so they panic rather than return an error, mirroring
// the original's ASSERT_/ASSERTMSG_ macros.
type ContractViolation struct {
	msg string
}

func (e *ContractViolation) Error() string { return e.msg }

func contractViolation(msg string) {
	panic(&ContractViolation{msg: msg})
}

// Params holds the decider's tunable options, §4.1's parameter table.
type Params struct {
	ICPMaxDistance    float64
	ICPGoodnessThresh float64
	LCMinNodeIDDiff   uint64

	VisualizeLaserScans     bool
	EnableIntensityViewport bool
	EnableRangeViewport     bool
	ScanImagesExternalDir   string
}

// DefaultParams returns the defaults listed in spec.md §4.1.
func DefaultParams() Params {
	return Params{
		ICPMaxDistance:          10.0,
		ICPGoodnessThresh:       0.75,
		LCMinNodeIDDiff:         10,
		VisualizeLaserScans:     true,
		EnableIntensityViewport: true,
		EnableRangeViewport:     true,
	}
}

// EdgeStats is a snapshot of the per-edge-type registration counters.
type EdgeStats struct {
	ICP2D uint64
	ICP3D uint64
	LC    uint64
}

// mode latches which scan kind ("2D" or "3D") the session has committed to,
// per spec.md §4.1 step 2. modeNone means no scan has been seen yet.
type mode int

const (
	modeNone mode = iota
	mode2D
	mode3D
)

// Decider is the edge registration decider (spec.md §4.1). It is
// constructed once per session and driven by a single caller thread.
type Decider struct {
	logger logging.Logger

	graph       posegraph.Graph
	icp         ICPSolver
	display     Display
	rawlogFname string
	loader3D    func(path string) ([][]float32, [][]uint8, bool, error)

	params        Params
	hasReadConfig bool

	activeMode         mode
	latest2D           *scan.Scan2D
	latest3D           *scan.Scan3D
	latest3DProjection *scan.Scan2D

	registry2D map[posegraph.NodeID]*scan.Scan2D
	registry3D map[posegraph.NodeID]*scan.Scan3D

	lastTotalNodes int

	edgeStats      EdgeStats
	justInsertedLC bool

	invalidFormatStreak    int
	invalidFormatThreshold int
	datasetCheckArmed      bool
}

// NewDecider returns a Decider with default parameters and no graph, ICP
// solver or display bound yet; callers must at minimum call SetGraphPtr and
// set an ICP solver before the first Update with observations.
func NewDecider(logger logging.Logger) *Decider {
	return &Decider{
		logger:                 logger,
		params:                 DefaultParams(),
		lastTotalNodes:         initialTotalNodes,
		registry2D:             make(map[posegraph.NodeID]*scan.Scan2D),
		registry3D:             make(map[posegraph.NodeID]*scan.Scan3D),
		invalidFormatThreshold: DefaultInvalidFormatThreshold,
		datasetCheckArmed:      true,
	}
}

// SetInvalidFormatThreshold overrides the number of consecutive
// unrecognised-format steps tolerated before the dataset-sanity check logs
// its diagnostic and disarms. Not exposed through the config file surface,
// matching the original's hardcoded constant; exists for test determinism.
func (d *Decider) SetInvalidFormatThreshold(n int) {
	d.invalidFormatThreshold = n
}

// SetGraphPtr binds the external pose graph the decider will read nodes
// from and register edges into. The decider never takes ownership of it.
func (d *Decider) SetGraphPtr(g posegraph.Graph) {
	d.graph = g
	d.logger.Infow("pose graph bound")
}

// SetICPSolver binds the external scan-matching collaborator.
func (d *Decider) SetICPSolver(solver ICPSolver) {
	d.icp = solver
}

// SetDisplay binds the driver-owned visualisation handle.
func (d *Decider) SetDisplay(display Display) {
	d.display = display
}

// SetScan3DLoader binds the collaborator used to materialise a lazily
// loaded 3D scan's range/intensity images (spec.md §4.1 step 2). Without
// one bound, an unloaded 3D scan is ingested with an empty range image.
func (d *Decider) SetScan3DLoader(loader func(path string) ([][]float32, [][]uint8, bool, error)) {
	d.loader3D = loader
}

// SetRawlogFname records the rawlog path. If existsFn reports that a
// sibling directory named "<rawlog-base>_Images" exists, the decider stores
// it as its external 3D-scan image directory; existsFn lets tests avoid
// touching the real filesystem.
func (d *Decider) SetRawlogFname(path string, existsFn func(string) bool) {
	d.rawlogFname = path
	d.logger.Infow("rawlog path bound", "path", path)

	imagesDir := rawlogImagesDir(path)
	if existsFn != nil && existsFn(imagesDir) {
		d.params.ScanImagesExternalDir = imagesDir
	}
}

func rawlogImagesDir(rawlogFname string) string {
	base := rawlogFname
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
	}
	return base + "_Images"
}

// LoadConfig populates Params from the "<section>" and
// "VisualizationParameters" blocks of source, then forwards an "ICP"
// block to the bound solver if it is configurable. On success, the
// decider's has-read-config flag transitions to true (spec.md §6); InitializeVisuals
// refuses to run until then.
func LoadConfig(d *Decider, source *ini.File, section string) error {
	p := DefaultParams()

	if sec, err := source.GetSection(section); err == nil {
		p.ICPMaxDistance = sec.Key("ICP_max_distance").MustFloat64(p.ICPMaxDistance)
		p.ICPGoodnessThresh = sec.Key("ICP_goodness_thresh").MustFloat64(p.ICPGoodnessThresh)
		p.LCMinNodeIDDiff = uint64(sec.Key("LC_min_nodeid_diff").MustInt(int(p.LCMinNodeIDDiff)))
		p.ScanImagesExternalDir = sec.Key("scan_images_external_directory").MustString(p.ScanImagesExternalDir)
	}

	if sec, err := source.GetSection("VisualizationParameters"); err == nil {
		p.VisualizeLaserScans = sec.Key("visualize_laser_scans").MustBool(p.VisualizeLaserScans)
		p.EnableIntensityViewport = sec.Key("enable_intensity_viewport").MustBool(p.EnableIntensityViewport)
		p.EnableRangeViewport = sec.Key("enable_range_viewport").MustBool(p.EnableRangeViewport)
	}

	d.params = p

	if configurable, ok := d.icp.(ConfigurableICPSolver); ok {
		if err := configurable.LoadConfig(source, "ICP"); err != nil {
			return errors.Wrap(err, "loading ICP configuration")
		}
	}

	d.hasReadConfig = true
	d.logger.Infow("configuration loaded",
		"ICP_max_distance", p.ICPMaxDistance,
		"ICP_goodness_thresh", p.ICPGoodnessThresh,
		"LC_min_nodeid_diff", p.LCMinNodeIDDiff)
	return nil
}

// GetEdgeStats writes a snapshot of the edge-type counters into out.
func (d *Decider) GetEdgeStats(out *EdgeStats) {
	*out = d.edgeStats
}

// JustInsertedLoopClosure reports whether the most recent Update
// registered at least one edge classified as a loop closure.
func (d *Decider) JustInsertedLoopClosure() bool {
	return d.justInsertedLC
}

// Update advances the decider by one step, per spec.md §4.1's algorithm.
// Exactly one of frame or single should be non-nil. The contents of action
// are ignored; an action-only step (frame and single both nil) disarms the
// dataset-sanity check. Panics with *ContractViolation if SetGraphPtr has not been called.
func (d *Decider) Update(action *scan.Action, frame *scan.SensoryFrame, single *scan.Observation) {
	if d.graph == nil {
		contractViolation("erd: update called before SetGraphPtr")
	}

	newNodeID, newNodeRegistered := d.detectNewNode()

	recognised := d.ingestScan(frame, single)
	d.trackDatasetSanity(action, single, frame, recognised)

	if newNodeRegistered {
		d.appendToRegistry(newNodeID)
	}

	d.justInsertedLC = false

	if !newNodeRegistered {
		return
	}

	candidates := d.candidateSet(newNodeID)
	d.registerEdges(newNodeID, candidates)
}

// detectNewNode implements step 1: compare nodeCount() to last_total_nodes,
// advancing the counter but never decrementing it.
func (d *Decider) detectNewNode() (posegraph.NodeID, bool) {
	total := d.graph.NodeCount()
	if total <= d.lastTotalNodes {
		return 0, false
	}
	d.lastTotalNodes = total
	return posegraph.NodeID(total - 1), true
}

// ingestScan implements step 2: dispatch on the incoming observation's
// tagged kind, latching the active mode. Returns whether a scan of a
// recognised kind (or an action-only step) was seen.
func (d *Decider) ingestScan(frame *scan.SensoryFrame, single *scan.Observation) bool {
	if single != nil {
		switch single.Kind {
		case scan.KindObs2D:
			d.latest2D = single.Obs2D
			d.activeMode = mode2D
			return true
		case scan.KindObs3D:
			if single.Obs3D != nil {
				single.Obs3D.ResolveImagePath(d.params.ScanImagesExternalDir)
				if d.loader3D != nil {
					if err := single.Obs3D.Load(d.loader3D); err != nil {
						d.logger.Warn("failed to materialise 3D scan payload: ", err)
					}
				}
			}
			d.latest3D = single.Obs3D
			d.activeMode = mode3D
			if single.Obs3D != nil {
				d.latest3DProjection = scan.Project3DTo2D(
					single.Obs3D, 2*math.Pi, 30.0, spatialmath.NewPose3D(0, 0, 0, 0, 0, 0))
			}
			return true
		case scan.KindAction:
			return true
		case scan.KindSensoryFrame:
			frame = single.Frame
		}
	}
	if frame != nil {
		if s2, ok := frame.FirstObs2D(); ok {
			d.latest2D = s2
			d.activeMode = mode2D
			return true
		}
	}
	return false
}

// trackDatasetSanity implements step 7: accumulate unrecognised-format
// steps until the configured threshold, then log once and disarm.
func (d *Decider) trackDatasetSanity(action *scan.Action, single *scan.Observation, frame *scan.SensoryFrame, recognised bool) {
	if !d.datasetCheckArmed {
		return
	}
	if recognised {
		d.datasetCheckArmed = false
		d.invalidFormatStreak = 0
		return
	}
	if action != nil && single == nil && frame == nil {
		d.datasetCheckArmed = false
		return
	}
	d.invalidFormatStreak++
	if d.invalidFormatStreak > d.invalidFormatThreshold {
		d.logger.Warnw("observation stream contains no recognisable 2D or 3D range scans",
			"unrecognised_steps", d.invalidFormatStreak)
		d.datasetCheckArmed = false
	}
}

// appendToRegistry implements step 3: bind NodeID to the latest scan of the
// active mode. A missing scan is tolerated; the step binds nothing.
func (d *Decider) appendToRegistry(id posegraph.NodeID) {
	switch d.activeMode {
	case mode2D:
		if d.latest2D != nil {
			d.registry2D[id] = d.latest2D
		}
	case mode3D:
		if d.latest3D != nil {
			d.registry3D[id] = d.latest3D
		}
	case modeNone:
	}
}

// candidateSet implements step 4: NodeIDs within ICPMaxDistance of the new
// node's pose, excluding the new node, in ascending order. ICPMaxDistance
// <= 0 means "consider all prior nodes".
func (d *Decider) candidateSet(newNodeID posegraph.NodeID) []posegraph.NodeID {
	all := d.graph.AllNodes()
	candidates := make([]posegraph.NodeID, 0, len(all))
	for id := range all {
		if id == newNodeID {
			continue
		}
		if d.params.ICPMaxDistance > 0 && d.graph.DistanceTo(id, newNodeID) > d.params.ICPMaxDistance {
			continue
		}
		candidates = append(candidates, id)
	}
	sortNodeIDs(candidates)
	return candidates
}

func sortNodeIDs(ids []posegraph.NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// registerEdges implements step 6: pairwise ICP against each candidate
// with a scan present in the active-mode registry, appending an edge and
// bumping counters when the reported goodness clears the threshold.
func (d *Decider) registerEdges(newNodeID posegraph.NodeID, candidates []posegraph.NodeID) {
	newScan, ok := d.scanFor(newNodeID)
	if !ok || d.icp == nil {
		return
	}

	for _, candidateID := range candidates {
		candidateScan, ok := d.scanFor(candidateID)
		if !ok {
			continue
		}

		relativePose, info, err := d.icp.Align(candidateScan, newScan, nil)
		if err != nil {
			d.logger.Warnw("ICP alignment failed", "candidate", candidateID, "new_node", newNodeID, "error", err)
			continue
		}
		if info.Goodness <= d.params.ICPGoodnessThresh {
			continue
		}

		d.graph.InsertEdge(candidateID, newNodeID, relativePose)

		switch d.activeMode {
		case mode2D:
			d.edgeStats.ICP2D++
		case mode3D:
			d.edgeStats.ICP3D++
		case modeNone:
		}

		if nodeIDDiff(newNodeID, candidateID) > d.params.LCMinNodeIDDiff {
			d.edgeStats.LC++
			d.justInsertedLC = true
		}

		d.logger.Infow("registered edge",
			"from", candidateID, "to", newNodeID, "goodness", info.Goodness,
			"mode", d.activeMode, "loop_closure", d.justInsertedLC)
	}
}

func (d *Decider) scanFor(id posegraph.NodeID) (interface{}, bool) {
	switch d.activeMode {
	case mode2D:
		s, ok := d.registry2D[id]
		return s, ok
	case mode3D:
		s, ok := d.registry3D[id]
		return s, ok
	default:
		return nil, false
	}
}

func nodeIDDiff(a, b posegraph.NodeID) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}

// InitializeVisuals populates the bound display's scene with the
// decider's named objects (spec.md §6): the ICP_max_distance disk and the
// laser scan, plus optional 3D viewports. The objects carry no pose; they
// are not placed at the newest node. Panics with *ContractViolation if LoadConfig has not
// succeeded yet.
func (d *Decider) InitializeVisuals() {
	if !d.hasReadConfig {
		contractViolation("erd: InitializeVisuals called before configuration was loaded")
	}
	if d.display == nil {
		return
	}
	d.refreshVisuals()
}

// UpdateVisuals refreshes the bound display to reflect the decider's
// current state. Panics with *ContractViolation under the same condition
// as InitializeVisuals; it does not check that InitializeVisuals has run.
func (d *Decider) UpdateVisuals() {
	if !d.hasReadConfig {
		contractViolation("erd: UpdateVisuals called before configuration was loaded")
	}
	if d.display == nil {
		return
	}
	d.refreshVisuals()
}

// refreshVisuals implements the scoped acquire/release protocol of
// spec.md §5: acquire the scene, mutate, release, force a repaint.
func (d *Decider) refreshVisuals() {
	scene := d.display.Acquire()

	if d.params.VisualizeLaserScans {
		if d.activeMode == mode3D && d.latest3DProjection != nil {
			scene.Upsert("laser_scan_viz", d.latest3DProjection)
		} else if d.latest2D != nil {
			scene.Upsert("laser_scan_viz", d.latest2D)
		}
	}
	scene.Upsert("ICP_max_distance", radiusMarker{
		InnerRadius: d.params.ICPMaxDistance - 0.5,
		OuterRadius: d.params.ICPMaxDistance,
	})
	if d.activeMode == mode3D && d.latest3D != nil {
		if d.params.EnableIntensityViewport && d.latest3D.HasIntensity {
			scene.Upsert("intensity_viewport", d.latest3D.IntensityImage)
		}
		if d.params.EnableRangeViewport {
			scene.Upsert("range_viewport", d.latest3D.RangeImage)
		}
	}

	d.display.Release()
	d.display.ForceRepaint()
}

// radiusMarker is the "ICP_max_distance" scene object: a disk whose inner
// and outer radii bracket the candidate-selection cutoff. It holds radii
// only, no position.
type radiusMarker struct {
	InnerRadius, OuterRadius float64
}

func (r radiusMarker) String() string {
	return "ring[" + strconv.FormatFloat(r.InnerRadius, 'f', 2, 64) + "," +
		strconv.FormatFloat(r.OuterRadius, 'f', 2, 64) + "]"
}
