package fs

import (
	"os"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the fs.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("fs.access", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Access(path); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.open", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, path, err := idAndPath(msg)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		flags := int(msg.OptionalUint64("flags", uint64(os.O_RDONLY)))
		mode := os.FileMode(msg.OptionalUint64("mode", 0o644))
		if err := s.Open(id, path, flags, mode); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("fs.close", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Close(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.opendir", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, path, err := idAndPath(msg)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.OpenDir(id, path); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("fs.readdir", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		count := int(msg.OptionalUint64("entries", 256))
		names, derr := s.ReadDir(id, count)
		if derr != nil {
			reply(bridge.Fail(msg, toWire(derr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"entries": names}))
	})

	r.Register("fs.closedir", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.CloseDir(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.read", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		offset := int64(msg.OptionalUint64("offset", 0))
		size := int(msg.OptionalUint64("size", 4096))
		qr, rerr := s.Read(id, offset, size)
		if rerr != nil {
			reply(bridge.Fail(msg, toWire(rerr)))
			return
		}
		// s.Read returns the bytes read with no id of its own; Put
		// assigns the id the queuedResponse route later redeems.
		queued := router.Queued.Put(qr.Body, qr.Headers)
		reply(bridge.OkQueued(msg, queued))
	})

	r.Register("fs.write", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		offset := int64(msg.OptionalUint64("offset", 0))
		n, werr := s.Write(id, offset, msg.Buffer)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"result": n}))
	})

	r.Register("fs.stat", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		fi, serr := s.Stat(path)
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, statJSON(fi)))
	})

	r.Register("fs.lstat", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		fi, serr := s.Lstat(path)
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, statJSON(fi)))
	})

	r.Register("fs.fstat", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		fi, serr := s.Fstat(id)
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, statJSON(fi)))
	})

	r.Register("fs.fsync", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Fsync(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.ftruncate", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		size := int64(msg.OptionalUint64("size", 0))
		if err := s.Ftruncate(id, size); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.link", twoPathRoute(func(a, b string) error { return s.Link(a, b) }))
	r.Register("fs.symlink", twoPathRoute(func(a, b string) error { return s.Symlink(a, b) }))
	r.Register("fs.rename", twoPathRoute(func(a, b string) error { return s.Rename(a, b) }))
	r.Register("fs.copyFile", twoPathRoute(func(a, b string) error { return s.CopyFile(a, b) }))

	r.Register("fs.unlink", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Unlink(path); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.rmdir", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Rmdir(path); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.readlink", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		target, lerr := s.Readlink(path)
		if lerr != nil {
			reply(bridge.Fail(msg, toWire(lerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"path": target}))
	})

	r.Register("fs.realpath", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		abs, aerr := s.Realpath(path)
		if aerr != nil {
			reply(bridge.Fail(msg, toWire(aerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"path": abs}))
	})

	r.Register("fs.mkdir", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		mode := os.FileMode(msg.OptionalUint64("mode", 0o755))
		recursive := msg.OptionalBool("recursive", false)
		if err := s.Mkdir(path, mode, recursive); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.retainOpenDescriptor", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.RetainOpenDescriptor(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.getOpenDescriptors", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{"ids": s.GetOpenDescriptors()}))
	})

	r.Register("fs.closeOpenDescriptors", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		preserveRetained := msg.OptionalBool("preserveRetained", false)
		s.CloseOpenDescriptors(preserveRetained)
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.closeOpenDescriptor", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.CloseOpenDescriptor(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.chmod", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		mode := os.FileMode(msg.OptionalUint64("mode", 0o644))
		if err := s.Chmod(path, mode); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.chown", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, uid, gid, err := pathUIDGID(msg)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Chown(path, uid, gid); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.lchown", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, uid, gid, err := pathUIDGID(msg)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.Lchown(path, uid, gid); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("fs.constants", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, s.Constants()))
	})

	// fs.watch is a streaming route (spec.md §4.2.1): seq="-1" replies
	// are emitted for each fsnotify-debounced batch until fs.stopWatch
	// tears the watcher down, mirroring udp.readStart's callback shape.
	r.Register("fs.watch", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("path")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		id := s.allocID()
		werr := s.Watch(id, path, func(events []string, relPath string) {
			reply(bridge.Ok(msg, map[string]interface{}{"events": events, "path": relPath}))
		})
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("fs.stopWatch", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.StopWatch(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})
}

func pathUIDGID(msg *bridge.Message) (string, int, int, error) {
	path, err := msg.Require("path")
	if err != nil {
		return "", 0, 0, err
	}
	uid, uerr := msg.RequireInt("uid")
	if uerr != nil {
		return "", 0, 0, uerr
	}
	gid, gerr := msg.RequireInt("gid")
	if gerr != nil {
		return "", 0, 0, gerr
	}
	return path, uid, gid, nil
}

func idAndPath(msg *bridge.Message) (uint64, string, error) {
	id, err := msg.RequireUint64("id")
	if err != nil {
		return 0, "", err
	}
	path, perr := msg.Require("path")
	if perr != nil {
		return 0, "", perr
	}
	return id, path, nil
}

func twoPathRoute(fn func(a, b string) error) bridge.Handler {
	return func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		a, err := msg.Require("src")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		b, berr := msg.Require("dest")
		if berr != nil {
			reply(bridge.Fail(msg, toWire(berr)))
			return
		}
		if err := fn(a, b); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	}
}

func statJSON(fi os.FileInfo) map[string]interface{} {
	return map[string]interface{}{
		"size":    fi.Size(),
		"mode":    uint32(fi.Mode()),
		"modTime": fi.ModTime().Unix(),
		"isDir":   fi.IsDir(),
	}
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
