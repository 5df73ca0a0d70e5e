package optimizer

// climb runs hill-climbing passes over market-rate units. In each pass every
// ordered pair of market entries is tried by moving one unit from the first to
// the second on a snapshot; the snapshot is kept only if it stays within the
// area budget, strictly raises revenue, and (when proportionality applies)
// does not turn a feasible allocation infeasible.
// It returns the improved ledger and the number of passes run.
func (p *problem) climb(l *Ledger, maxPasses int) (*Ledger, int) {
	feasible := IsFeasible(p.evaluate(l))
	passes := 0
	for passes < maxPasses {
		passes++
		improved := false
		for _, from := range p.types {
			for _, to := range p.types {
				if from == to || l.Count(from, 0) == 0 || l.Count(to, 0) == 0 {
					continue
				}
				trial := l.Clone()
				p.move(trial, from, 0, to, 0)
				if !p.withinBudget(trial) {
					continue
				}
				if trial.MonthlyRevenue() <= l.MonthlyRevenue()+1e-9 {
					continue
				}
				if p.proportional && feasible {
					if !IsFeasible(p.evaluate(trial)) {
						continue
					}
				}
				l = trial
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return l, passes
}
