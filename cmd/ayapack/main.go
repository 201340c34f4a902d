// Command ayapack builds a cartridge from an assembled code section and
// a set of sprite bitmaps.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"aya/pkg/rom"
)

func main() {
	codePath := flag.String("code", "", "assembled code section")
	spriteList := flag.String("sprites", "", "comma separated sprite bitmaps")
	name := flag.String("name", "", "game title stored in the header")
	output := flag.String("output", "out.aya", "cartridge file to write")
	flag.Parse()

	if *codePath == "" {
		log.Fatal("usage: ayapack -code <code.bin> [-sprites a.bmp,b.bmp] [-name title] [-output out.aya]")
	}

	code, err := os.ReadFile(*codePath)
	if err != nil {
		log.Fatalf("Failed to read code section: %v", err)
	}

	var sprites []byte
	if *spriteList != "" {
		images, err := rom.LoadSprites(strings.Split(*spriteList, ","))
		if err != nil {
			log.Fatalf("Failed to load sprites: %v", err)
		}
		if sprites, err = rom.CompileSprites(images); err != nil {
			log.Fatalf("Failed to compile sprites: %v", err)
		}
	}

	cart, err := rom.Pack(*name, code, sprites)
	if err != nil {
		log.Fatalf("Failed to pack cartridge: %v", err)
	}
	if err := os.WriteFile(*output, cart, 0o644); err != nil {
		log.Fatalf("Failed to write cartridge: %v", err)
	}
	log.Printf("Wrote %s (%d bytes)", *output, len(cart))
}
