package routine

// State is the phase of a drag session.
type State int

// Session states
const (
	Idle State = iota
	Dragging
	Committing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	}
	return "unknown"
}

// Point is a pointer position in view coordinates.
type Point struct {
	X, Y float64
}

// Session is the ephemeral state of one drag, from start to end or cancel.
// Transitions are pure: each returns the next Session and never touches a Tree.
type Session struct {
	State    State
	ActiveID string
	Pointer  Point
	Hover    []string // ranked eligible targets, first is highlighted

	hint *FlatEntry // entry the highlighted target pointed at when resolved
}

// Replacement is the effect of a successful drop: the tree that replaces the current one.
type Replacement struct {
	Tree     Tree
	SourceID string
	TargetID string
}

// Start begins a new session for activeID, discarding any previous session state.
// PRE: activeID is non-empty
// POST: State == Dragging
func (s Session) Start(activeID string) Session {
	return Session{State: Dragging, ActiveID: activeID}
}

// Over records the pointer and recomputes the hovered targets.
// PRE: idx describes the current tree
// POST: only ephemeral fields change; no-op unless Dragging
func (s Session) Over(idx *Index, pointer Point, c Candidates) Session {
	if s.State != Dragging {
		return s
	}
	s.Pointer = pointer
	s.Hover = Resolve(idx, s.ActiveID, c)
	s.hint = nil
	if target := s.Target(); target != "" {
		if gid, ok := idx.GroupOfContainer(target); ok {
			target = gid
		}
		if e, ok := idx.Entry(target); ok {
			s.hint = &e
		}
	}
	return s
}

// Target returns the highlighted drop target, or "" if none.
func (s Session) Target() string {
	if len(s.Hover) == 0 {
		return ""
	}
	return s.Hover[0]
}

// End finishes the drag. An empty targetID falls back to the highlighted target.
// PRE: tree is the current tree
// POST: returns (Committing, replacement) when the drop changes the tree,
// otherwise (Idle, nil)
func (s Session) End(tree Tree, activeID, targetID string) (Session, *Replacement) {
	if s.State != Dragging || activeID != s.ActiveID {
		return Session{}, nil
	}
	hint := s.hint
	if targetID == "" {
		targetID = s.Target()
	} else if targetID != s.Target() {
		hint = nil
	}
	if targetID == "" || targetID == s.ActiveID {
		return Session{}, nil
	}

	next := MoveWithHint(tree, s.ActiveID, targetID, hint)
	if Equal(next, tree) {
		return Session{}, nil
	}
	return Session{State: Committing, ActiveID: s.ActiveID}, &Replacement{
		Tree:     next,
		SourceID: s.ActiveID,
		TargetID: targetID,
	}
}

// Committed completes a commit and returns to Idle.
func (s Session) Committed() Session {
	if s.State != Committing {
		return s
	}
	return Session{}
}

// Cancel abandons the session. It is idempotent.
func (s Session) Cancel() Session {
	return Session{}
}

// Controller owns the tree of one editing session and applies drag events to it.
// It is not safe for concurrent use; events arrive one at a time from the view.
type Controller struct {
	tree      Tree
	index     *Index
	session   Session
	onReorder func(Tree)
}

// NewController creates a controller for tree. onReorder, if non-nil, receives
// every committed tree.
// PRE: none
// POST: session is Idle
func NewController(tree Tree, onReorder func(Tree)) *Controller {
	t := tree.Clone()
	return &Controller{
		tree:      t,
		index:     NewIndex(t),
		onReorder: onReorder,
	}
}

// Tree returns a copy of the current tree.
func (c *Controller) Tree() Tree {
	return c.tree.Clone()
}

// Index returns the lookup index of the current tree.
func (c *Controller) Index() *Index {
	return c.index
}

// Session returns the current session state.
func (c *Controller) Session() Session {
	return c.session
}

// Start begins dragging activeID. Unknown ids leave the controller Idle.
func (c *Controller) Start(activeID string) {
	if _, ok := c.index.Entry(activeID); !ok {
		c.session = c.session.Cancel()
		return
	}
	c.session = c.session.Start(activeID)
}

// Move updates the hovered target and returns it ("" if none).
func (c *Controller) Move(pointer Point, cands Candidates) string {
	c.session = c.session.Over(c.index, pointer, cands)
	return c.session.Target()
}

// End drops the active item on targetID ("" uses the hovered target) and
// reports whether the tree was replaced.
func (c *Controller) End(activeID, targetID string) bool {
	next, effect := c.session.End(c.tree, activeID, targetID)
	c.session = next
	if effect == nil {
		return false
	}
	c.tree = effect.Tree
	c.index = NewIndex(c.tree)
	if c.onReorder != nil {
		c.onReorder(c.tree.Clone())
	}
	c.session = c.session.Committed()
	return true
}

// Cancel abandons the current drag. The tree is untouched.
func (c *Controller) Cancel() {
	c.session = c.session.Cancel()
}

// Reload replaces the tree with a newer version from outside the drag, for
// example after a refresh. The session survives; targets captured before the
// reload are recovered on drop where possible.
func (c *Controller) Reload(tree Tree) {
	c.tree = tree.Clone()
	c.index = NewIndex(c.tree)
}
