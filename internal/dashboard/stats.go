package dashboard

import "github.com/diagnosis/wandernest/internal/domain"

// ComputeStats counts requests in one pass. Order does not matter and the
// input is not modified.
func ComputeStats(requests []domain.TouristRequest) domain.DashboardStats {
	stats := domain.DashboardStats{Total: len(requests)}
	for i := range requests {
		switch requests[i].Status {
		case domain.RequestPending:
			stats.Pending++
		case domain.RequestAccepted:
			stats.Accepted++
		}
		if requests[i].Review != nil {
			stats.Completed++
		}
	}
	return stats
}
