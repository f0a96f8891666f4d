package flakechartlib

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// Group is a key and the items that produced it, in input order.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupBy groups items by key. Groups are returned in the order their key first appears.
func GroupBy[T any, K comparable](items []T, key func(T) K) []Group[K, T] {
	index := map[K]int{}
	var groups []Group[K, T]
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

func Sum[T any](items []T, value func(T) float64) float64 {
	total := 0.0
	for _, item := range items {
		total += value(item)
	}
	return total
}

// Average is the mean of value over items, 0 when items is empty.
func Average[T any](items []T, value func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	data := make(stats.Float64Data, 0, len(items))
	for _, item := range items {
		data = append(data, value(item))
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0
	}
	return mean
}

func sortByDate[T any](items []T, date func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return date(items[i]).Before(date(items[j])) })
}

// SortDates sorts dates ascending.
func SortDates(dates []time.Time) {
	sortByDate(dates, func(d time.Time) time.Time { return d })
}
