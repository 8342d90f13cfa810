// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:generate glslangValidator -V ../../shaders/shader.vert -o ../../shaders/shader.vert.spv
//go:generate glslangValidator -V ../../shaders/shader.frag -o ../../shaders/shader.frag.spv

package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/toy2d/core"
	"github.com/devblok/toy2d/gfx"
	"github.com/devblok/toy2d/gfx/vkr"
	"github.com/devblok/toy2d/gfx/window"
	"github.com/devblok/toy2d/model"
)

func init() {
	runtime.LockOSThread()
}

var frameCounter int64

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
)

var (
	envFile    = flag.String("env", "", "Load settings from a .env file")
	logLevel   = flag.String("loglevel", "info", "Log level")
	screenshot = flag.String("screenshot", "", "Write the first presented frame to a png file")
	assets     = flag.String("assets", "", "Directory to load textures from")
	archive    = flag.String("archive", "", "kar archive to load textures from, overrides -assets")
	textureID  = flag.String("texture", "player.png", "Texture to draw")
)

const (
	moveStep   = 10
	rotateStep = 5
)

func configure() (core.Configuration, error) {
	cfg := core.DefaultConfiguration()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return cfg, err
		}
		envy.Reload()
	}

	cfg.Assets.Directory = envy.Get("TOY2D_ASSETS", cfg.Assets.Directory)
	cfg.Assets.Archive = envy.Get("TOY2D_ARCHIVE", cfg.Assets.Archive)
	if *assets != "" {
		cfg.Assets.Directory = *assets
	}
	if *archive != "" {
		cfg.Assets.Archive = *archive
	}

	var err error
	if cfg.Renderer.VertexShader, cfg.Renderer.FragmentShader, err = embeddedShaders(); err != nil {
		log.WithError(err).Warn("embedded shaders missing, reading from " + cfg.Renderer.ShaderDirectory)
		cfg.Renderer.VertexShader, cfg.Renderer.FragmentShader = nil, nil
	}
	return cfg, nil
}

func embeddedShaders() ([]byte, []byte, error) {
	box := packr.NewBox("../../shaders")
	vertex, err := box.Find("shader.vert.spv")
	if err != nil {
		return nil, nil, err
	}
	fragment, err := box.Find("shader.frag.spv")
	if err != nil {
		return nil, nil, err
	}
	return vertex, fragment, nil
}

// checkerboard stands in when the texture can not be loaded.
func checkerboard(size int) gfx.Pixels {
	data := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (y*size + x) * 4
			data[i+3] = 255
			if (x/8+y/8)%2 == 0 {
				data[i], data[i+1], data[i+2] = 255, 255, 255
			}
		}
	}
	return gfx.Pixels{Data: data, Width: size, Height: size}
}

func writeScreenshot(renderer *vkr.Renderer, path string) error {
	img, err := renderer.Capture()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level, err := log.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		defer trace.Stop()
	}

	configuration, err := configure()
	if err != nil {
		log.Fatal(err)
	}

	win, err := window.Open(window.Options{
		Title:     "Toy2D",
		Width:     int32(configuration.Renderer.ScreenWidth),
		Height:    int32(configuration.Renderer.ScreenHeight),
		Resizable: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer win.Close()

	configuration.Renderer.ScreenWidth, configuration.Renderer.ScreenHeight = win.DrawableSize()
	configuration.Instance = win.InstanceConfiguration("toy2d", *debug)

	engine, err := core.Init(configuration, win.SurfaceFactory())
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Quit()

	renderer := engine.Renderer()
	width, height := float32(configuration.Renderer.ScreenWidth), float32(configuration.Renderer.ScreenHeight)
	if err := renderer.SetProject(width, 0, 0, height, 1, -1); err != nil {
		log.Fatal(err)
	}

	texture, err := engine.LoadTexture(*textureID)
	if err != nil {
		log.WithError(err).WithField("texture", *textureID).Warn("falling back to a generated texture")
		if texture, err = engine.CreateTexture(checkerboard(64)); err != nil {
			log.Fatal(err)
		}
	}
	marker, err := engine.CreateTexture(checkerboard(16))
	if err != nil {
		log.Fatal(err)
	}

	if *screenshot != "" {
		if err := renderer.CaptureNextFrame(); err != nil {
			log.WithError(err).Warn("screenshots are not supported by this swapchain")
			*screenshot = ""
		}
	}

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	programSync := sync.WaitGroup{}

	/* Frame counter loop */
	programSync.Add(1)
	go func(ctx context.Context, wg *sync.WaitGroup) {
		defer wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count := atomic.SwapInt64(&frameCounter, 0)
				fmt.Printf("\r\033[2KFrame count: %d\tCGO calls: %d", count, runtime.NumCgoCall())
			}
		}
	}(ctx, &programSync)

	x, y := width/2, height/2
	var rotation float32
	tinted := false

	/* Render and event loop, both stay on the locked thread */
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		case <-timeService.FpsTicker().C:
			if err := renderer.StartRender(); err != nil {
				if vkr.Recoverable(err) {
					log.WithError(err).Debug("frame skipped")
					continue
				}
				log.WithError(err).Error("starting frame")
				cancel()
				continue
			}
			renderer.DrawTexture(x, y, rotation, texture)
			renderer.DrawTexture(32, 32, -rotation, marker)
			if err := renderer.EndRender(); err != nil {
				log.WithError(err).Error("presenting frame")
				if !vkr.Recoverable(err) {
					cancel()
				}
				continue
			}
			atomic.AddInt64(&frameCounter, 1)

			if *screenshot != "" {
				if err := writeScreenshot(renderer, *screenshot); err != nil {
					log.WithError(err).Error("writing screenshot")
				} else {
					log.WithField("file", *screenshot).Info("screenshot written")
				}
				*screenshot = ""
			}
		case <-timeService.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Type != sdl.KEYDOWN {
						continue
					}
					switch et.Keysym.Sym {
					case sdl.K_ESCAPE:
						cancel()
					case sdl.K_LEFT:
						x -= moveStep
					case sdl.K_RIGHT:
						x += moveStep
					case sdl.K_UP:
						y -= moveStep
					case sdl.K_DOWN:
						y += moveStep
					case sdl.K_q:
						rotation -= rotateStep
					case sdl.K_e:
						rotation += rotateStep
					case sdl.K_c:
						tinted = !tinted
						tint := model.White
						if tinted {
							tint = model.Color{R: 1, G: 0.4, B: 0.4}
						}
						if err := renderer.SetDrawColor(tint); err != nil {
							log.WithError(err).Error("setting draw color")
						}
					}
				case *sdl.WindowEvent:
					if et.Event != sdl.WINDOWEVENT_SIZE_CHANGED {
						continue
					}
					w, h := win.DrawableSize()
					if w == 0 || h == 0 {
						continue
					}
					if err := engine.Resize(w, h); err != nil {
						log.WithError(err).Error("resizing")
						cancel()
						continue
					}
					width, height = float32(w), float32(h)
					if err := renderer.SetProject(width, 0, 0, height, 1, -1); err != nil {
						log.WithError(err).Error("updating projection")
					}
				case *sdl.QuitEvent:
					cancel()
				}
			}
		}
	}

	programSync.Wait()
	fmt.Println()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
	}
}
