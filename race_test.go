//go:build race

package coco

const raceEnabled = true
