package gesture

// PathBuffer keeps the most recent points of the head path.
type PathBuffer struct {
	points []PathPoint
	size   int
}

// NewPathBuffer creates a buffer holding at most size points.
func NewPathBuffer(size int) *PathBuffer {
	if size < 2 {
		size = 2
	}
	return &PathBuffer{points: make([]PathPoint, 0, size), size: size}
}

// Push appends p, dropping the oldest point when full.
func (b *PathBuffer) Push(p PathPoint) {
	if len(b.points) == b.size {
		copy(b.points, b.points[1:])
		b.points = b.points[:b.size-1]
	}
	b.points = append(b.points, p)
}

// Points returns a copy of the buffered points, oldest first.
func (b *PathBuffer) Points() []PathPoint {
	return append([]PathPoint(nil), b.points...)
}

// Len returns the number of buffered points.
func (b *PathBuffer) Len() int { return len(b.points) }

// Reset empties the buffer.
func (b *PathBuffer) Reset() { b.points = b.points[:0] }

// Recognizer feeds a PathBuffer into a Matcher and reports at most one
// match per gesture. The buffer is cleared after a match, and nothing
// matches again until Cooldown points have been pushed.
type Recognizer struct {
	matcher   *Matcher
	buffer    *PathBuffer
	minPoints int
	cooldown  int
	wait      int
}

// RecognizerConfig parameterizes a Recognizer.
type RecognizerConfig struct {
	BufferSize int // points kept, default 45
	MinPoints  int // points needed before matching, default 10
	Cooldown   int // points ignored after a match, default 15, negative for none
}

// NewRecognizer creates a recognizer around m.
func NewRecognizer(m *Matcher, cfg RecognizerConfig) *Recognizer {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 45
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 10
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	} else if cfg.Cooldown == 0 {
		cfg.Cooldown = 15
	}
	return &Recognizer{
		matcher:   m,
		buffer:    NewPathBuffer(cfg.BufferSize),
		minPoints: min(cfg.MinPoints, cfg.BufferSize),
		cooldown:  cfg.Cooldown,
	}
}

// Observe pushes one point and returns the match it completes, if any.
func (r *Recognizer) Observe(p PathPoint) (Match, bool) {
	if r.wait > 0 {
		r.wait--
		return Match{}, false
	}
	r.buffer.Push(p)
	if r.buffer.Len() < r.minPoints || r.matcher.Len() == 0 {
		return Match{}, false
	}

	m, ok := r.matcher.Best(r.buffer.Points())
	if !ok {
		return Match{}, false
	}
	r.buffer.Reset()
	r.wait = r.cooldown
	return m, true
}

// Reset clears the buffer and any pending cooldown.
func (r *Recognizer) Reset() {
	r.buffer.Reset()
	r.wait = 0
}
