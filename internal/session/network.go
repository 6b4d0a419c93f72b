package session

// NetworkNode is one bank vertex in the interbank loan graph.
type NetworkNode struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Equity      float64 `json:"equity"`
	IsDefaulted bool    `json:"is_defaulted"`
}

// NetworkEdge is one directed loan exposure, lender to borrower.
type NetworkEdge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Amount float64 `json:"amount"`
}

// Network is the read-only graph view supplementing the core endpoints
// (get_network in the originating system), used by dashboards to render
// the interbank exposure graph without exposing full balance sheets.
type Network struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// Network returns the current interbank loan graph.
func (s *Session) Network() Network {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]NetworkNode, 0, len(s.banks))
	edges := make([]NetworkEdge, 0)
	for _, b := range s.banks {
		nodes = append(nodes, NetworkNode{ID: b.ID, Name: b.Name, Equity: b.Balance.Equity(), IsDefaulted: b.IsDefaulted})
		for to, amt := range b.Balance.LoanPositions {
			if amt > 0 {
				edges = append(edges, NetworkEdge{From: b.ID, To: to, Amount: amt})
			}
		}
	}
	return Network{Nodes: nodes, Edges: edges}
}
