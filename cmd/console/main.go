package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"aya/pkg/cpu"
	"aya/pkg/rom"
)

func main() {
	maxSteps := flag.Int("max-steps", 10_000_000, "stop after this many instructions (0 = no limit)")
	showRegs := flag.Bool("regs", false, "dump registers after the run")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: console [flags] <cartridge.aya>")
	}

	cart, err := rom.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load cartridge: %v", err)
	}

	vm := cpu.NewCPU()
	vm.Output = os.Stdout
	if err := vm.LoadCode(cart.Code); err != nil {
		log.Fatalf("Failed to load code: %v", err)
	}
	if err := vm.LoadTiles(cart.Sprites); err != nil {
		log.Fatalf("Failed to load tiles: %v", err)
	}

	if err := vm.Run(*maxSteps); err != nil {
		log.Fatalf("CPU fault after %d steps: %v", vm.Steps, err)
	}

	if *showRegs {
		snap := vm.Snapshot()
		for i, val := range snap {
			r, _ := cpu.RegisterFromIndex(byte(i))
			fmt.Printf("%-3s = $%04X\n", r, val)
		}
	}
}
