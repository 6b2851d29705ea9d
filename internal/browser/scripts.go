package browser

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/boxlens/api/schemas"
	"github.com/xkilldash9x/boxlens/internal/overlay/render"
)

// TriggerBinding is the runtime binding the page calls with host notifications.
const TriggerBinding = "boxlensTrigger"

// styleProperties are the computed style properties read for every element.
var styleProperties = []string{
	"display", "gap", "row-gap", "column-gap",
	"padding-top", "padding-right", "padding-bottom", "padding-left",
	"margin-top", "margin-right", "margin-bottom", "margin-left",
	"color", "background-color", "font-size", "line-height", "border-radius",
}

// registryJS evaluates to the page-side key registry. Keys live in a WeakMap so the
// host's own nodes are never tagged.
const registryJS = `(function () {
  if (!window.__boxlens) {
    const keys = new WeakMap();
    let next = 1;
    window.__boxlens = {
      keyOf(el) {
        let k = keys.get(el);
        if (!k) { k = next++; keys.set(el, k); }
        return k;
      },
      isUI(el, prefix) {
        for (let n = el; n && n.nodeType === 1; n = n.parentElement) {
          if ((n.id || '').startsWith(prefix)) return true;
          for (const c of n.classList) { if (c.startsWith(prefix)) return true; }
        }
        return false;
      },
    };
  }
  return window.__boxlens;
})`

const captureJS = `function (args) {
  const bl = (` + registryJS + `)();
  const body = document.body;
  const nodes = [];
  if (body) {
    for (const el of body.querySelectorAll('*')) {
      const parent = el.parentElement;
      const node = {
        key: bl.keyOf(el),
        parent: (!parent || parent === body) ? -1 : bl.keyOf(parent),
        tag: el.tagName.toLowerCase(),
        id: el.id || '',
        className: typeof el.className === 'string' ? el.className : (el.getAttribute('class') || ''),
        rect: { x: 0, y: 0, width: 0, height: 0 },
      };
      try {
        const r = el.getBoundingClientRect();
        node.rect = { x: r.left, y: r.top, width: r.width, height: r.height };
        const cs = getComputedStyle(el);
        const style = {};
        for (const p of args.props) {
          const v = cs.getPropertyValue(p);
          if (v) style[p] = v;
        }
        node.style = style;
      } catch (e) {
        node.error = String((e && e.message) || e);
      }
      nodes.push(node);
    }
  }
  let hitKey = null;
  if (args.pointer) {
    for (const h of document.elementsFromPoint(args.pointer.x, args.pointer.y)) {
      if (h === document.documentElement || h === body) break;
      if (!bl.isUI(h, args.prefix)) { hitKey = bl.keyOf(h); break; }
    }
  }
  return {
    url: location.href,
    viewport: { width: window.innerWidth, height: window.innerHeight, scrollX: window.scrollX, scrollY: window.scrollY },
    pointer: args.pointer,
    hitKey: hitKey,
    nodes: nodes,
  };
}`

const replaceLayerJS = `function (args) {
  let layer = document.getElementById(args.id);
  if (!layer) {
    layer = document.createElement('div');
    layer.id = args.id;
    layer.setAttribute('aria-hidden', 'true');
    Object.assign(layer.style, {
      position: 'absolute', top: '0', left: '0', width: '0', height: '0',
      pointerEvents: 'none', zIndex: '2147483647',
    });
    document.documentElement.appendChild(layer);
  }
  const frag = document.createDocumentFragment();
  const handles = [];
  for (const p of args.prims) {
    const b = p.band;
    const seg = document.createElement('div');
    seg.className = args.prefix + 'seg';
    Object.assign(seg.style, {
      position: 'absolute', boxSizing: 'border-box', pointerEvents: 'none',
      top: b.top + 'px', left: b.left + 'px', width: b.width + 'px', height: b.height + 'px',
    });
    if (b.role === 'outline') {
      seg.style.border = '1px solid ' + p.fill;
    } else {
      seg.style.backgroundColor = p.fill;
    }
    if (b.label) {
      const label = document.createElement('div');
      label.className = args.prefix + 'seg-label';
      label.textContent = b.label;
      Object.assign(label.style, {
        position: 'absolute', top: '50%', left: '50%', transform: 'translate(-50%, -50%)',
        font: '10px/1 monospace', color: '#fff', whiteSpace: 'nowrap',
        textShadow: '0 0 2px rgba(0,0,0,0.8)',
      });
      if (p.vertical) label.style.writingMode = 'vertical-rl';
      seg.appendChild(label);
    }
    frag.appendChild(seg);
    handles.push(args.id + '#' + p.index);
  }
  layer.replaceChildren(frag);
  return handles;
}`

const toastJS = `function (args) {
  const old = document.getElementById(args.id);
  if (old) old.remove();
  const t = document.createElement('div');
  t.id = args.id;
  t.textContent = args.message;
  Object.assign(t.style, {
    position: 'fixed', right: '16px', bottom: '16px', padding: '6px 10px',
    background: 'rgba(0,0,0,0.8)', color: '#fff', font: '12px sans-serif',
    borderRadius: '4px', zIndex: '2147483647', pointerEvents: 'none',
  });
  document.documentElement.appendChild(t);
  setTimeout(() => t.remove(), args.ttl);
  return true;
}`

const triggerHookJS = `function (args) {
  if (window.__boxlensHooked) return false;
  window.__boxlensHooked = true;
  const bl = (` + registryJS + `)();
  const send = (kind, point, key) => {
    const fn = window[args.binding];
    if (typeof fn === 'function') fn(JSON.stringify({ kind: kind, point: point, key: key }));
  };
  const opts = { passive: true, capture: true };
  const start = () => {
    document.addEventListener('mousemove', (e) => send('pointermove', { x: e.clientX, y: e.clientY }), opts);
    document.addEventListener('mouseover', (e) => {
      const el = e.target;
      if (!(el instanceof Element) || bl.isUI(el, args.prefix)) return;
      send('pointerenter', { x: e.clientX, y: e.clientY }, bl.keyOf(el));
    }, opts);
    window.addEventListener('scroll', () => send('scroll'), opts);
    window.addEventListener('resize', () => send('resize'), { passive: true });
    new MutationObserver((muts) => {
      for (const m of muts) {
        const t = m.target.nodeType === 1 ? m.target : m.target.parentElement;
        if (t && !bl.isUI(t, args.prefix)) { send('mutation'); return; }
      }
    }).observe(document.documentElement, { subtree: true, childList: true, attributes: true, characterData: true });
  };
  if (document.documentElement) start(); else document.addEventListener('DOMContentLoaded', start);
  return true;
}`

// invoke renders a call of fn with args encoded as a single JSON object.
func invoke(fn string, args interface{}) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", fn, b), nil
}

func captureScript(pointer *schemas.Point, prefix string) (string, error) {
	return invoke(captureJS, map[string]interface{}{
		"props":   styleProperties,
		"pointer": pointer,
		"prefix":  prefix,
	})
}

func replaceLayerScript(layerID, prefix string, prims []render.Primitive) (string, error) {
	if prims == nil {
		prims = []render.Primitive{}
	}
	return invoke(replaceLayerJS, map[string]interface{}{
		"id":     layerID,
		"prefix": prefix,
		"prims":  prims,
	})
}

func toastScript(id, message string, ttl time.Duration) (string, error) {
	return invoke(toastJS, map[string]interface{}{
		"id":      id,
		"message": message,
		"ttl":     ttl.Milliseconds(),
	})
}

func triggerHookScript(prefix string) (string, error) {
	return invoke(triggerHookJS, map[string]interface{}{
		"binding": TriggerBinding,
		"prefix":  prefix,
	})
}
