package rundown

import (
	"fmt"
	"sync"
)

// HookFactory creates a hook instance from its evaluated config. A
// factory is registered under an id referenced by "hook" blocks in the
// definition files.
type HookFactory struct {
	Id        string
	NewConfig func() any
	NewHook   func(config any) (Hook, error)
}

var factoryRegistry = make(map[string]*HookFactory)
var factoryRegistryLock sync.Mutex

func RegisterHookFactory(def *HookFactory) {
	factoryRegistryLock.Lock()
	if _, exists := factoryRegistry[def.Id]; !exists {
		factoryRegistry[def.Id] = def
	}
	factoryRegistryLock.Unlock()
}

func UnregisterHookFactory(hookId string) {
	factoryRegistryLock.Lock()
	delete(factoryRegistry, hookId)
	factoryRegistryLock.Unlock()
}

func getHookFactory(hookId string) *HookFactory {
	factoryRegistryLock.Lock()
	defer factoryRegistryLock.Unlock()
	if obj, ok := factoryRegistry[hookId]; ok {
		return obj
	}
	return nil
}

// RegisterHook registers a typed hook factory.
func RegisterHook[T any](hookId string, configFactory func() T, factory func(conf T) (Hook, error)) {
	RegisterHookFactory(&HookFactory{
		Id: hookId,
		NewConfig: func() any {
			return configFactory()
		},
		NewHook: func(conf any) (Hook, error) {
			if c, ok := conf.(T); ok {
				return factory(c)
			} else {
				return nil, fmt.Errorf("invalid config type: %T", conf)
			}
		},
	})
}
