// Package osinfo implements the OS core service (spec.md §4.2.4):
// constants, cpus, uptime, uname, hrtime, rusage, availableMemory,
// networkInterfaces, paths, bufferSize. Grounded on gopsutil/v3, the
// cross-platform system-stats library the teacher carries for its own
// host introspection.
package osinfo

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/teranos/qntx-runtime/resource"
	"github.com/teranos/qntx-runtime/rterr"
)

// BufferResizer abstracts the UDP SocketManager's buffer-resize call so
// this package needn't import services/udp directly (os.bufferSize acts
// on a peer socket, spec.md §4.2.2/§4.2.4). which is 0 for the send
// buffer, 1 for the receive buffer, matching udp.SendBuffer/udp.RecvBuffer.
type BufferResizer interface {
	BufferSize(id uint64, size int, which int) (int, error)
}

// Service reports host OS statistics.
type Service struct {
	bootTime time.Time
	resolver *resource.Resolver
	sockets  BufferResizer
}

// New constructs the OS service, capturing a process-start hrtime origin.
// resolver and sockets may be nil; os.paths/os.bufferSize report
// rterr.Internal in that case.
func New(resolver *resource.Resolver, sockets BufferResizer) *Service {
	return &Service{bootTime: time.Now(), resolver: resolver, sockets: sockets}
}

// CPU describes one logical CPU, matching os.cpus' per-core shape.
type CPU struct {
	Model string
	MHz   float64
	Times struct {
		User, Nice, Sys, Idle, IRQ float64
	}
}

// Cpus implements os.cpus.
func (s *Service) Cpus() ([]CPU, error) {
	infos, err := cpu.Info()
	if err != nil {
		return nil, rterr.Internal("cpu.Info: %v", err)
	}
	times, err := cpu.Times(true)
	if err != nil {
		return nil, rterr.Internal("cpu.Times: %v", err)
	}
	out := make([]CPU, 0, len(infos))
	for i, info := range infos {
		c := CPU{Model: info.ModelName, MHz: info.Mhz}
		if i < len(times) {
			c.Times.User = times[i].User
			c.Times.Nice = times[i].Nice
			c.Times.Sys = times[i].System
			c.Times.Idle = times[i].Idle
			c.Times.IRQ = times[i].Irq
		}
		out = append(out, c)
	}
	return out, nil
}

// NetworkInterface describes one host interface.
type NetworkInterface struct {
	Name      string
	Addresses []string
	MAC       string
}

// NetworkInterfaces implements os.networkInterfaces.
func (s *Service) NetworkInterfaces() ([]NetworkInterface, error) {
	ifaces, err := gnet.Interfaces()
	if err != nil {
		return nil, rterr.Internal("net.Interfaces: %v", err)
	}
	out := make([]NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		out = append(out, NetworkInterface{Name: iface.Name, Addresses: addrs, MAC: iface.HardwareAddr})
	}
	return out, nil
}

// Uptime implements os.uptime, in seconds.
func (s *Service) Uptime() (uint64, error) {
	v, err := host.Uptime()
	if err != nil {
		return 0, rterr.Internal("host.Uptime: %v", err)
	}
	return v, nil
}

// Uname implements os.uname.
type UnameInfo struct {
	Sysname string
	Release string
	Version string
	Machine string
}

func (s *Service) Uname() (UnameInfo, error) {
	info, err := host.Info()
	if err != nil {
		return UnameInfo{}, rterr.Internal("host.Info: %v", err)
	}
	return UnameInfo{
		Sysname: info.OS,
		Release: info.PlatformVersion,
		Version: info.KernelVersion,
		Machine: runtime.GOARCH,
	}, nil
}

// Hrtime implements os.hrtime: nanoseconds since the OS service started,
// monotonic within a process.
func (s *Service) Hrtime() int64 {
	return time.Since(s.bootTime).Nanoseconds()
}

// Rusage implements os.rusage with the subset gopsutil can report
// cross-platform.
type Rusage struct {
	MaxRSS uint64
}

func (s *Service) Rusage() (Rusage, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return Rusage{}, rterr.Internal("mem.VirtualMemory: %v", err)
	}
	return Rusage{MaxRSS: v.Used}, nil
}

// AvailableMemory implements os.availableMemory, in bytes.
func (s *Service) AvailableMemory() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, rterr.Internal("mem.VirtualMemory: %v", err)
	}
	return v.Available, nil
}

// Paths implements os.paths: the well-known platform directories the
// current bundle identifier is entitled to use.
func (s *Service) Paths() (resource.WellKnownPaths, error) {
	if s.resolver == nil {
		return resource.WellKnownPaths{}, rterr.Internal("no resource resolver configured")
	}
	return s.resolver.WellKnown, nil
}

// BufferSize implements os.bufferSize, delegating to the UDP
// SocketManager's send/recv buffer for the given peer socket id.
func (s *Service) BufferSize(id uint64, size int, which int) (int, error) {
	if s.sockets == nil {
		return 0, rterr.Internal("no socket manager configured")
	}
	v, err := s.sockets.BufferSize(id, size, which)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Constants implements os.constants: the subset of POSIX/errno constants
// route handlers look up by name.
func (s *Service) Constants() map[string]int {
	return map[string]int{
		"O_RDONLY": 0,
		"O_WRONLY": 1,
		"O_RDWR":   2,
		"O_CREAT":  0o100,
		"O_TRUNC":  0o1000,
		"O_APPEND": 0o2000,
	}
}
