package flakechartview

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

func TestLeaderboardRows(t *testing.T) {
	board := flakechartlib.Leaderboard{
		Ranked: []flakechartapi.RankedTest{
			{TestName: "TestA/sub", FlakeRate: 75, PreviousFlakeRate: 50, HasPrevious: true, Growth: 25},
			{TestName: "TestB", FlakeRate: 10, PreviousFlakeRate: 12.5, HasPrevious: true, Growth: -2.5},
			{TestName: "TestC", FlakeRate: 0},
		},
	}
	expected := []LeaderboardRow{
		{Rank: 1, TestName: "TestA/sub", Link: "/?env=Docker+Linux&test=TestA%2Fsub", FlakeRate: "75.00%", Growth: "+25.00%", GrowthColor: "red"},
		{Rank: 2, TestName: "TestB", Link: "/?env=Docker+Linux&test=TestB", FlakeRate: "10.00%", Growth: "-2.50%", GrowthColor: "green"},
		{Rank: 3, TestName: "TestC", Link: "/?env=Docker+Linux&test=TestC", FlakeRate: "0.00%", Growth: "0.00%", GrowthColor: "black"},
	}
	if diff := cmp.Diff(expected, LeaderboardRows(board, "Docker Linux", "/")); diff != "" {
		t.Errorf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestSummaryRows(t *testing.T) {
	table := []flakechartapi.EnvironmentSummary{
		{Environment: "envA", RecentFailCount: 2.5, PreviousFailCount: 1, HasPrevious: true, Growth: 1.5},
		{Environment: "envB", RecentFailCount: 1.0 / 3},
	}
	expected := []SummaryRow{
		{Rank: 1, Environment: "envA", Link: "/flake?env=envA", RecentFailCount: "2.5", Growth: "+1.50", GrowthColor: "red"},
		{Rank: 2, Environment: "envB", Link: "/flake?env=envB", RecentFailCount: "0.33", Growth: "0.00", GrowthColor: "black"},
	}
	if diff := cmp.Diff(expected, SummaryRows(table, "/flake")); diff != "" {
		t.Errorf("unexpected rows (-want +got):\n%s", diff)
	}
}
