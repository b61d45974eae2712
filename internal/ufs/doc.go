// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2024 Matthew Penner

// Package ufs provides the raw descriptor layer that buffered streams are
// built on top of. A Provider exposes open, read, write, seek and close on
// plain integer descriptors, exactly the surface the operating system offers,
// and nothing more.
//
// UnixIO performs the calls directly through the unix package so that we keep
// full control over the exact syscalls being performed. MemIO keeps every file
// in memory and allows faults to be injected, it is used to exercise the error
// paths of the layers above without needing a misbehaving disk.
package ufs
