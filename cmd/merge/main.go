package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"funduscam/internal/imaging"

	"gocv.io/x/gocv"
)

func main() {
	output := flag.String("o", "merged_image.jpg", "Output path")
	threshold := flag.Int("threshold", imaging.DefaultBrightnessThreshold, "Brightness glare threshold")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] first.png second.png\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	images := make([]gocv.Mat, 0, flag.NArg())
	defer func() {
		for _, img := range images {
			img.Close()
		}
	}()
	for _, path := range flag.Args() {
		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			log.Fatalf("Failed to read %s", path)
		}
		images = append(images, img)
	}

	merged, err := imaging.NewGlareDetector(*threshold).Merge(images)
	if err != nil {
		log.Fatalf("Failed to merge: %v", err)
	}
	defer merged.Close()

	if !gocv.IMWrite(*output, merged) {
		log.Fatalf("Failed to write %s", *output)
	}
	fmt.Printf("Merged %s + %s -> %s\n", flag.Arg(0), flag.Arg(1), *output)
}
