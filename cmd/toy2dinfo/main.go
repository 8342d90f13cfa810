// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/toy2d/gfx/vkr"
)

var debug = flag.Bool("vkdbg", false, "Load Vulkan validation layers")

func main() {
	flag.Parse()

	instance, err := vkr.NewInstance(vkr.InstanceConfiguration{
		ApplicationName: "toy2dinfo",
		DebugMode:       *debug,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Release()

	bytes, err := json.MarshalIndent(instance.PhysicalDevicesInfo(), "", "  ")
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	fmt.Printf("%s\n", bytes)
}
