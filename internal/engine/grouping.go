package engine

import (
	"runtime"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// cluster is a set of cache misses that share one message format. members[0]
// is the representative.
type cluster struct {
	members []candidate
	merged  bool
}

func (c *cluster) rep() candidate {
	return c.members[0]
}

// groupCandidates partitions items by normalized sender, clusters each
// partition greedily and then folds small clusters into the partition's
// largest one. Partitions keep first-seen order.
func (p *Pipeline) groupCandidates(items []candidate) []*cluster {
	defer metrics.ObserveStage(StageGrouping, time.Now())

	var order []string
	partitions := make(map[string][]candidate)
	for _, item := range items {
		if _, ok := partitions[item.sender]; !ok {
			order = append(order, item.sender)
		}
		partitions[item.sender] = append(partitions[item.sender], item)
	}

	var clusters []*cluster
	for _, sender := range order {
		formed := p.clusterPartition(partitions[sender])
		merged := p.mergeSmallClusters(formed)
		p.logger.Debug("Grouped sender partition",
			"sender", sender,
			"items", len(partitions[sender]),
			"clusters", len(formed),
			"after_merge", len(merged))
		clusters = append(clusters, merged...)
	}
	return clusters
}

// clusterPartition takes the first unassigned item as a representative and
// pulls in every later unassigned item whose similarity to it clears the
// group threshold. It yields to the scheduler every YieldEvery comparisons.
func (p *Pipeline) clusterPartition(items []candidate) []*cluster {
	assigned := make([]bool, len(items))
	var clusters []*cluster
	comparisons := 0

	for i := range items {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		c := &cluster{members: []candidate{items[i]}}

		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			comparisons++
			if comparisons%p.opts.YieldEvery == 0 {
				runtime.Gosched()
			}
			if p.opts.Profile.ShouldGroup(similarity.CosineSimilarity(items[i].embedding, items[j].embedding)) {
				assigned[j] = true
				c.members = append(c.members, items[j])
			}
		}
		clusters = append(clusters, c)
	}
	return clusters
}

// mergeSmallClusters absorbs clusters of at most SmallGroupMax members into
// the largest cluster when the two representatives are at least MergeFloor
// similar. Absorbed members are not re-checked against the new representative.
func (p *Pipeline) mergeSmallClusters(clusters []*cluster) []*cluster {
	if len(clusters) < 2 {
		return clusters
	}

	largest := 0
	for i, c := range clusters {
		if len(c.members) > len(clusters[largest].members) {
			largest = i
		}
	}
	target := clusters[largest]
	targetRep := target.rep().embedding

	out := make([]*cluster, 0, len(clusters))
	for i, c := range clusters {
		if i == largest {
			out = append(out, c)
			continue
		}
		if len(c.members) <= p.opts.SmallGroupMax &&
			similarity.CosineSimilarity(c.rep().embedding, targetRep) >= p.opts.MergeFloor {
			target.members = append(target.members, c.members...)
			target.merged = true
			continue
		}
		out = append(out, c)
	}
	return out
}
