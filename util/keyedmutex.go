package util

import (
	"sync"
)

// KeyedMutex gives a separate lock for every key. Goroutines holding
// different keys do not block each other. The zero value is ready to use.
type KeyedMutex struct {
	m     sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	users int // goroutines holding or waiting for this lock
}

// Lock waits until key is free and takes it.
func (km *KeyedMutex) Lock(key string) {
	km.m.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*keyLock)
	}
	l := km.locks[key]
	if l == nil {
		l = &keyLock{}
		km.locks[key] = l
	}
	l.users++
	km.m.Unlock()
	l.Lock()
}

// Unlock releases key. It panics if key is not locked.
func (km *KeyedMutex) Unlock(key string) {
	km.m.Lock()
	l := km.locks[key]
	if l == nil {
		km.m.Unlock()
		panic("util: unlock of unlocked key " + key)
	}
	l.users--
	if l.users == 0 {
		delete(km.locks, key)
	}
	km.m.Unlock()
	l.Unlock()
}
