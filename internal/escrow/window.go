package escrow

// WindowPolicy bounds how far back a caller may extend a history window.
type WindowPolicy struct {
	StepDays int
	MaxDays  int
}

var DefaultWindowPolicy = WindowPolicy{
	StepDays: 3,
	MaxDays:  90,
}

func (p WindowPolicy) normalized() WindowPolicy {
	if p.StepDays <= 0 {
		p.StepDays = DefaultWindowPolicy.StepDays
	}
	if p.MaxDays < p.StepDays {
		p.MaxDays = p.StepDays
	}
	return p
}

// ScanWindow is the caller-held history depth. It only grows, in fixed steps,
// up to the policy maximum, and goes back to one step on Reset.
type ScanWindow struct {
	policy WindowPolicy
	days   int
}

func NewScanWindow(policy WindowPolicy) *ScanWindow {
	policy = policy.normalized()
	return &ScanWindow{
		policy: policy,
		days:   policy.StepDays,
	}
}

func (w *ScanWindow) Days() int {
	return w.days
}

func (w *ScanWindow) CanExtend() bool {
	return w.days < w.policy.MaxDays
}

// Extend grows the window by one step and reports whether it changed.
func (w *ScanWindow) Extend() bool {
	if !w.CanExtend() {
		return false
	}
	w.days += w.policy.StepDays
	if w.days > w.policy.MaxDays {
		w.days = w.policy.MaxDays
	}
	return true
}

func (w *ScanWindow) Reset() {
	w.days = w.policy.StepDays
}

func (w *ScanWindow) shrinkTo(days int) {
	if days < w.days {
		w.days = days
	}
}
