package tail

// Method tags how a probability was produced.
type Method int

const (
	Trivial Method = iota
	Brute
	Saddlepoint
	Edgeworth
	KS
)

func (m Method) String() string {
	switch m {
	case Trivial:
		return "trivial"
	case Brute:
		return "brute"
	case Saddlepoint:
		return "saddlepoint"
	case Edgeworth:
		return "edgeworth"
	case KS:
		return "ks"
	}
	return "unknown"
}

// Counters records every branch taken during one solve. They are owned by a
// single solve and never shared.
type Counters struct {
	Trivial          int64 `json:"trivial_count"`
	Brute            int64 `json:"brute_count"`
	SA               int64 `json:"sa_count"`
	KS               int64 `json:"ks_count"`
	NewtonIterations int64 `json:"newton_iterations"`
	Edgeworth        int64 `json:"edgeworth_count"`
	Lugannani        int64 `json:"lugannani_count"`
	Householder      int64 `json:"householder_count"`
	Bisection        int64 `json:"bisection_count"`
	Overflow         int64 `json:"overflow_count"`
	NonConvergence   int64 `json:"nonconvergence_count"`
	StatesEvaluated  int64 `json:"states_evaluated"`
}

// Add accumulates o into c.
func (c *Counters) Add(o Counters) {
	c.Trivial += o.Trivial
	c.Brute += o.Brute
	c.SA += o.SA
	c.KS += o.KS
	c.NewtonIterations += o.NewtonIterations
	c.Edgeworth += o.Edgeworth
	c.Lugannani += o.Lugannani
	c.Householder += o.Householder
	c.Bisection += o.Bisection
	c.Overflow += o.Overflow
	c.NonConvergence += o.NonConvergence
	c.StatesEvaluated += o.StatesEvaluated
}

// Total is the number of tail evaluations, shortcuts included.
func (c *Counters) Total() int64 {
	return c.Trivial + c.Brute + c.SA + c.KS
}
