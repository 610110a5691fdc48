package main

import (
	"cudasys/cmd/cudasys/doctor"
	"cudasys/cmd/cudasys/flags"
	"cudasys/cmd/cudasys/generate"
	"cudasys/cmd/cudasys/locate"
)

func init() {
	Registry.FromGetter(locate.GetCommand)
	Registry.FromGetter(flags.GetCommand)
	Registry.FromGetter(generate.GetCommand)
	Registry.FromGetter(doctor.GetCommand)
}
