//go:build !js

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"aya/pkg/cpu"
	"aya/pkg/rom"
)

func main() {
	runBinPath := flag.String("run-bin", "", "run a raw assembled code section on the virtual CPU")
	runRomPath := flag.String("run-rom", "", "run a packed cartridge headless on the virtual CPU")
	maxSteps := flag.Int("max-steps", 10_000_000, "stop after this many instructions (0 = no limit)")
	flag.Parse()

	if (*runBinPath == "") == (*runRomPath == "") {
		fmt.Fprintln(os.Stderr, "provide exactly one of -run-bin <file> or -run-rom <file>")
		flag.Usage()
		os.Exit(2)
	}

	target := *runBinPath
	if target == "" {
		target = *runRomPath
	}
	if err := runTarget(target, *runRomPath != "", *maxSteps); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", target, err)
		os.Exit(1)
	}
}

func runTarget(path string, isRom bool, maxSteps int) error {
	vm := cpu.NewCPU()
	vm.Output = os.Stdout

	if isRom {
		cart, err := rom.ReadFile(path)
		if err != nil {
			return err
		}
		if err := vm.LoadCode(cart.Code); err != nil {
			return err
		}
		if err := vm.LoadTiles(cart.Sprites); err != nil {
			return err
		}
	} else {
		code, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := vm.LoadCode(code); err != nil {
			return err
		}
	}

	if err := vm.Run(maxSteps); err != nil {
		return err
	}

	regs := make([]string, 0, cpu.NumRegisters)
	for i, val := range vm.Snapshot() {
		r, _ := cpu.RegisterFromIndex(byte(i))
		regs = append(regs, fmt.Sprintf("%s=$%04X", r, val))
	}
	fmt.Printf("run complete (%s): %s steps=%d %s\n", path, vm.State, vm.Steps, strings.Join(regs, " "))
	return nil
}
