package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"aya/pkg/cpu"
	"aya/pkg/rom"
)

// clockCycle is how many instructions run per 60fps frame.
const clockCycle = 2000

const windowScale = 4

type Game struct {
	vm        *cpu.CPU
	screen    *ebiten.Image // reused 240x112 canvas
	statePath string
}

func pollKeys() cpu.KeyStatus {
	var keys cpu.KeyStatus
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		keys = keys.With(cpu.KeyLeft)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyDown) {
		keys = keys.With(cpu.KeyDown)
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyUp) {
		keys = keys.With(cpu.KeyUp)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		keys = keys.With(cpu.KeyRight)
	}
	if ebiten.IsKeyPressed(ebiten.KeySpace) {
		keys = keys.With(cpu.KeyMain)
	}
	if ebiten.IsKeyPressed(ebiten.KeyC) {
		keys = keys.With(cpu.KeySecondary)
	}
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		keys = keys.With(cpu.KeyPause)
	}
	if ebiten.IsKeyPressed(ebiten.KeyTab) {
		keys = keys.With(cpu.KeySelect)
	}
	return keys
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := g.vm.SaveStateToFile(g.statePath); err != nil {
			log.Printf("Failed to save state: %v", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := g.vm.RestoreFromFile(g.statePath); err != nil {
			log.Printf("Failed to restore state: %v", err)
		}
	}

	g.vm.SetInput(pollKeys())

	for i := 0; i < clockCycle; i++ {
		if g.vm.State != cpu.Running {
			break
		}
		if err := g.vm.Step(); err != nil {
			return err
		}
	}
	if g.vm.State == cpu.Halted {
		return ebiten.Termination
	}

	// The program reads keys during its frame budget; clear them so a
	// tap does not repeat into the next frame.
	g.vm.SetInput(0)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screen == nil {
		g.screen = ebiten.NewImage(cpu.ScreenWidth, cpu.ScreenHeight)
	}
	g.screen.WritePixels(g.vm.GetFramebufferRGBA())
	screen.DrawImage(g.screen, nil)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.ScreenWidth, cpu.ScreenHeight
}

func main() {
	statePath := flag.String("state", "aya_state.zip", "save state file (F5 saves, F9 restores)")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: desktop [flags] <cartridge.aya>")
	}

	cart, err := rom.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to load cartridge: %v", err)
	}

	vm := cpu.NewCPU()
	if err := vm.LoadCode(cart.Code); err != nil {
		log.Fatalf("Failed to load code: %v", err)
	}
	if err := vm.LoadTiles(cart.Sprites); err != nil {
		log.Fatalf("Failed to load tiles: %v", err)
	}

	title := cart.Title
	if title == "" {
		title = "AYA"
	}
	ebiten.SetWindowSize(cpu.ScreenWidth*windowScale, cpu.ScreenHeight*windowScale)
	ebiten.SetWindowTitle(title)

	if err := ebiten.RunGame(&Game{vm: vm, statePath: *statePath}); err != nil {
		log.Fatal(err)
	}
	if vm.Fault != nil {
		log.Fatalf("CPU fault: %v", vm.Fault)
	}
}
