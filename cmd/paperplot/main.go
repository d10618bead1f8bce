/*
DESCRIPTION
  paperplot renders the characteristic-curve points of a paper profile
  as a plot, one line per populated contrast grade, for inspecting a
  profile before printing with it.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

// Package main renders paper profile curves.
package main

import (
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/opendarkroom/printimer/profile"
)

// Density anchors for the three curve points: paper base + 0.04 for
// Ht, the 0.60 speed point for Hm, and 90% of net density for Hs.
const (
	htDensity = 0.04
	hmDensity = 0.60
)

func main() {
	var (
		in  = flag.String("in", "", "paper profile record (JSON); default profile if empty")
		out = flag.String("out", "paper.svg", "output plot file (.svg, .png, .pdf)")
	)
	flag.Parse()

	p := profile.DefaultPaper()
	if *in != "" {
		data, err := os.ReadFile(*in)
		if err != nil {
			fail("could not read profile: %v", err)
		}
		p, err = profile.DecodePaper(data)
		if err != nil {
			fail("could not decode profile: %v", err)
		}
	}

	plt := plot.New()
	plt.Title.Text = fmt.Sprintf("Paper: %s", p.Name)
	plt.X.Label.Text = "log exposure (PEV)"
	plt.Y.Label.Text = "density"

	var args []interface{}
	for g := profile.Grade00; g < profile.GradeCount; g++ {
		grade, ok := p.Grade(g)
		if !ok {
			continue
		}
		args = append(args, "Grade "+g.String(), gradePoints(grade, p.MaxNetDensity))
	}
	if len(args) == 0 {
		fail("profile has no populated grades")
	}

	err := plotutil.AddLinePoints(plt, args...)
	if err != nil {
		fail("could not build plot: %v", err)
	}

	err = plt.Save(16*vg.Centimeter, 12*vg.Centimeter, *out)
	if err != nil {
		fail("could not save plot: %v", err)
	}
	fmt.Println("wrote", *out)
}

// gradePoints maps a grade's PEVs onto the density axis. Hm is
// omitted when the speed point is unknown.
func gradePoints(g profile.PaperGrade, maxNet float64) plotter.XYs {
	hs := maxNet * 0.90
	pts := plotter.XYs{{X: float64(g.Ht), Y: htDensity}}
	if g.Hm > 0 {
		pts = append(pts, plotter.XY{X: float64(g.Hm), Y: hmDensity})
	}
	pts = append(pts, plotter.XY{X: float64(g.Hs), Y: hs})
	return pts
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "paperplot: "+format+"\n", args...)
	os.Exit(1)
}
