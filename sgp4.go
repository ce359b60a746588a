package tlefit

import "math"

// meanElements are the Kozai mean elements at epoch in kernel units: radians,
// radians per minute, drag in 1/Earth radii.
type meanElements[T Scalar[T]] struct {
	n, e, i, node, argp, m, bstar T
	epochJD                       float64
}

// brouwer is the working state derived exactly once from the mean elements:
// un-Kozai'd Brouwer elements, zonal/drag secular rate coefficients and, for
// deep-space orbits, the lunar-solar and resonance terms. It is never written
// after construction, so any number of propagation calls may share it.
type brouwer[T Scalar[T]] struct {
	el     meanElements[T]
	deep   bool
	simple bool
	gsto   float64

	nodp, aodp T // recovered mean motion (rad/min) and semi-major axis (ER)

	cosio, sinio                 T
	x3thm1, x1mth2, x7thm1       T
	xlcof, aycof                 T
	eta, c1, c4, c5              T
	d2, d3, d4                   T
	t2cof, t3cof, t4cof, t5cof   T
	mdot, omgdot, xnodot, xnodcf T
	omgcof, xmcof, delmo, sinmao T

	ds *deepspace[T]
}

// cartesian is a TEME state in meters and meters per second.
type cartesian[T Scalar[T]] struct {
	pos, vel [3]T
}

// lpCoeffs returns the long-period periodic coefficients for an inclination,
// guarding the retrograde-equatorial division (cf. Vallado's temp4 fix).
func lpCoeffs[T Scalar[T]](sinio, cosio T) (xlcof, aycof T) {
	num := sinio.MulS(0.125 * a3ovk2).Mul(cosio.MulS(5).AddS(3))
	if math.Abs(cosio.Float()+1) > 1.5e-12 {
		xlcof = num.Div(cosio.AddS(1))
	} else {
		xlcof = num.MulS(1 / 1.5e-12)
	}
	aycof = sinio.MulS(0.25 * a3ovk2)
	return
}

// newBrouwer initializes the propagation theory for one element set. Errors
// here are fatal: the element set cannot be propagated at any epoch.
func newBrouwer[T Scalar[T]](el meanElements[T]) (*brouwer[T], error) {
	if e := el.e.Float(); e < 0 || e >= 1 {
		return nil, &ModelLimitsError{Reason: ReasonEccentricityRange, Value: e}
	}

	b := &brouwer[T]{el: el}
	one := el.n.Lift(1)

	b.sinio, b.cosio = el.i.SinCos()
	theta2 := b.cosio.Mul(b.cosio)
	theta4 := theta2.Mul(theta2)
	b.x3thm1 = theta2.MulS(3).AddS(-1)
	b.x1mth2 = one.Sub(theta2)
	b.x7thm1 = theta2.MulS(7).AddS(-1)

	eosq := el.e.Mul(el.e)
	betao2 := one.Sub(eosq)
	betao := betao2.Sqrt()

	// un-Kozai the mean motion (cf. libsgp4 OrbitalElements)
	a1 := one.MulS(xke).Div(el.n).Pow(x2o3)
	temp := b.x3thm1.MulS(1.5 * ck2).Div(betao.Mul(betao2))
	del1 := temp.Div(a1.Mul(a1))
	a0 := a1.Mul(one.Sub(del1.Mul(del1.Mul(del1.MulS(134.0/81.0).AddS(1)).AddS(1.0 / 3.0))))
	del0 := temp.Div(a0.Mul(a0))
	b.nodp = el.n.Div(one.Add(del0))
	b.aodp = a0.Div(one.Sub(del0))

	perigeeKm := b.aodp.Mul(one.Sub(el.e)).AddS(-1).MulS(earthRadiusKm)
	if perigeeKm.Float() < 0 {
		return nil, &ModelLimitsError{Reason: ReasonPerigeeBelowSurface, Value: perigeeKm.Float()}
	}
	b.deep = twoPi/b.nodp.Float() >= 225.0
	b.simple = b.deep || perigeeKm.Float() < 220

	s4 := one.MulS(sCoef)
	qoms24 := one.MulS(qoms2t)
	if pk := perigeeKm.Float(); pk < 156 {
		s4v := perigeeKm.AddS(-78)
		if pk < 98 {
			s4v = one.MulS(20)
		}
		qoms24 = s4v.Neg().AddS(120).MulS(1 / earthRadiusKm).Pow(4)
		s4 = s4v.MulS(1 / earthRadiusKm).AddS(1)
	}

	pinvsq := one.Div(b.aodp.Mul(b.aodp).Mul(betao2).Mul(betao2))
	tsi := one.Div(b.aodp.Sub(s4))
	b.eta = b.aodp.Mul(el.e).Mul(tsi)
	etasq := b.eta.Mul(b.eta)
	eeta := el.e.Mul(b.eta)
	psisq := one.Sub(etasq).Abs()
	if psisq.Float() == 0 {
		psisq = one.MulS(1e-12)
	}
	coef := qoms24.Mul(tsi.Pow(4))
	coef1 := coef.Div(psisq.Pow(3.5))

	c2 := coef1.Mul(b.nodp).Mul(
		b.aodp.Mul(etasq.MulS(1.5).AddS(1).Add(eeta.Mul(etasq.AddS(4)))).Add(
			tsi.MulS(0.75 * ck2).Div(psisq).Mul(b.x3thm1).Mul(
				etasq.Mul(etasq.AddS(8)).MulS(3).AddS(8))))
	b.c1 = el.bstar.Mul(c2)

	c3 := one.MulS(0)
	if el.e.Float() > 1e-4 {
		c3 = coef.Mul(tsi).MulS(a3ovk2).Mul(b.nodp).Mul(b.sinio).Div(el.e)
	}
	b.c4 = b.nodp.MulS(2).Mul(coef1).Mul(b.aodp).Mul(betao2).Mul(
		b.eta.Mul(etasq.MulS(0.5).AddS(2)).Add(el.e.Mul(etasq.MulS(2).AddS(0.5))).Sub(
			tsi.MulS(2 * ck2).Div(b.aodp.Mul(psisq)).Mul(
				b.x3thm1.MulS(-3).Mul(one.Sub(eeta.MulS(2)).Add(etasq.Mul(eeta.MulS(-0.5).AddS(1.5)))).Add(
					b.x1mth2.MulS(0.75).Mul(etasq.MulS(2).Sub(eeta.Mul(etasq.AddS(1)))).Mul(el.argp.MulS(2).Cos())))))
	b.c5 = coef1.MulS(2).Mul(b.aodp).Mul(betao2).Mul(
		etasq.Add(eeta).MulS(2.75).AddS(1).Add(eeta.Mul(etasq)))

	temp1 := pinvsq.MulS(3 * ck2).Mul(b.nodp)
	temp2 := temp1.MulS(ck2).Mul(pinvsq)
	temp3 := pinvsq.Mul(pinvsq).MulS(1.25 * ck4).Mul(b.nodp)
	b.mdot = b.nodp.Add(temp1.MulS(0.5).Mul(betao).Mul(b.x3thm1)).Add(
		temp2.MulS(0.0625).Mul(betao).Mul(theta2.MulS(-78).AddS(13).Add(theta4.MulS(137))))
	con42 := theta2.MulS(-5).AddS(1)
	b.omgdot = temp1.MulS(-0.5).Mul(con42).Add(
		temp2.MulS(0.0625).Mul(theta2.MulS(-114).AddS(7).Add(theta4.MulS(395)))).Add(
		temp3.Mul(theta2.MulS(-36).AddS(3).Add(theta4.MulS(49))))
	xhdot1 := temp1.Neg().Mul(b.cosio)
	b.xnodot = xhdot1.Add(
		temp2.MulS(0.5).Mul(theta2.MulS(-19).AddS(4)).Add(
			temp3.MulS(2).Mul(theta2.MulS(-7).AddS(3))).Mul(b.cosio))
	b.xnodcf = betao2.MulS(3.5).Mul(xhdot1).Mul(b.c1)
	b.t2cof = b.c1.MulS(1.5)
	b.xlcof, b.aycof = lpCoeffs(b.sinio, b.cosio)

	b.delmo = b.eta.Mul(el.m.Cos()).AddS(1).Pow(3)
	b.sinmao = el.m.Sin()
	b.omgcof = el.bstar.Mul(c3).Mul(el.argp.Cos())
	b.xmcof = one.MulS(0)
	if el.e.Float() > 1e-4 {
		b.xmcof = coef.MulS(-x2o3).Mul(el.bstar).Div(eeta)
	}

	if !b.simple {
		c1sq := b.c1.Mul(b.c1)
		b.d2 = b.aodp.MulS(4).Mul(tsi).Mul(c1sq)
		dtmp := b.d2.Mul(tsi).Mul(b.c1).MulS(1.0 / 3.0)
		b.d3 = b.aodp.MulS(17).Add(s4).Mul(dtmp)
		b.d4 = dtmp.MulS(0.5).Mul(b.aodp).Mul(tsi).Mul(b.aodp.MulS(221).Add(s4.MulS(31))).Mul(b.c1)
		b.t3cof = b.d2.Add(c1sq.MulS(2))
		b.t4cof = b.d3.MulS(3).Add(b.c1.Mul(b.d2.MulS(12).Add(c1sq.MulS(10)))).MulS(0.25)
		b.t5cof = b.d4.MulS(3).Add(b.c1.Mul(b.d3).MulS(12)).Add(b.d2.Mul(b.d2).MulS(6)).Add(
			c1sq.Mul(b.d2.MulS(2).Add(c1sq)).MulS(15)).MulS(0.2)
	} else {
		zero := one.MulS(0)
		b.d2, b.d3, b.d4 = zero, zero, zero
		b.t3cof, b.t4cof, b.t5cof = zero, zero, zero
	}

	if b.deep {
		b.gsto = gstime(el.epochJD)
		b.ds = newDeepspace(b, eosq, betao2, betao)
	}
	return b, nil
}

// propagate evaluates the theory tsince minutes after epoch. The secular
// corrections are closed-form in tsince; deep-space orbits additionally go
// through the lunar-solar secular rates and, when resonant, the integrated
// resonance phase (sdp4.go). The final polar-nodal reconstruction is shared
// by both branches.
func (b *brouwer[T]) propagate(tsince float64) (cartesian[T], error) {
	var out cartesian[T]
	el := b.el
	one := el.n.Lift(1)
	t := tsince

	// secular gravity and atmospheric drag
	xmdf := el.m.Add(b.mdot.MulS(t))
	omgadf := el.argp.Add(b.omgdot.MulS(t))
	xnoddf := el.node.Add(b.xnodot.MulS(t))
	argpm := omgadf
	mm := xmdf
	t2 := t * t
	nodem := xnoddf.Add(b.xnodcf.MulS(t2))
	tempa := one.Sub(b.c1.MulS(t))
	tempe := el.bstar.Mul(b.c4).MulS(t)
	templ := b.t2cof.MulS(t2)

	if !b.simple {
		delomg := b.omgcof.MulS(t)
		delm := b.xmcof.Mul(b.eta.Mul(xmdf.Cos()).AddS(1).Pow(3).Sub(b.delmo))
		tcor := delomg.Add(delm)
		mm = xmdf.Add(tcor)
		argpm = omgadf.Sub(tcor)
		t3 := t2 * t
		t4 := t3 * t
		tempa = tempa.Sub(b.d2.MulS(t2)).Sub(b.d3.MulS(t3)).Sub(b.d4.MulS(t4))
		tempe = tempe.Add(el.bstar.Mul(b.c5).Mul(mm.Sin().Sub(b.sinmao)))
		templ = templ.Add(b.t3cof.MulS(t3)).Add(b.t4cof.Add(b.t5cof.MulS(t)).MulS(t4))
	}

	nm := b.nodp
	em := el.e
	inclm := el.i
	if b.deep {
		em, inclm, argpm, nodem, mm, nm = b.ds.secular(t, em, inclm, argpm, nodem, mm, nm)
	}

	if nm.Float() <= 0 {
		return out, &ModelLimitsError{Tsince: t, Reason: ReasonMeanMotionRange, Value: nm.Float()}
	}
	am := one.MulS(xke).Div(nm).Pow(x2o3).Mul(tempa).Mul(tempa)
	nm = one.MulS(xke).Div(am.Pow(1.5))
	em = em.Sub(tempe)
	if e := em.Float(); e >= 1 || e < -0.001 {
		return out, &ModelLimitsError{Tsince: t, Reason: ReasonEccentricityRange, Value: e}
	}
	if em.Float() < 1e-6 {
		em = one.MulS(1e-6)
	}
	mm = mm.Add(b.nodp.Mul(templ))
	xlm := mm.Add(argpm).Add(nodem)

	nodem = nodem.Mod(twoPi)
	argpm = argpm.Mod(twoPi)
	xlm = xlm.Mod(twoPi)
	mm = xlm.Sub(argpm).Sub(nodem).Mod(twoPi)

	// lunar-solar periodics (deep space only)
	ep := em
	xincp := inclm
	nodep := nodem
	argpp := argpm
	mp := mm
	sinip := b.sinio
	cosip := b.cosio
	x3thm1 := b.x3thm1
	x1mth2 := b.x1mth2
	x7thm1 := b.x7thm1
	xlcof := b.xlcof
	aycof := b.aycof
	if b.deep {
		ep, xincp, nodep, argpp, mp = b.ds.periodics(t, ep, xincp, nodep, argpp, mp)
		if xincp.Float() < 0 {
			xincp = xincp.Neg()
			nodep = nodep.AddS(math.Pi)
			argpp = argpp.AddS(-math.Pi)
		}
		if e := ep.Float(); e < 0 || e > 1 {
			return out, &ModelLimitsError{Tsince: t, Reason: ReasonPerturbedEccRange, Value: e}
		}
		sinip, cosip = xincp.SinCos()
		cosisq := cosip.Mul(cosip)
		x3thm1 = cosisq.MulS(3).AddS(-1)
		x1mth2 = one.Sub(cosisq)
		x7thm1 = cosisq.MulS(7).AddS(-1)
		xlcof, aycof = lpCoeffs(sinip, cosip)
	}

	// long period periodics
	axnl := ep.Mul(argpp.Cos())
	lptemp := one.Div(am.Mul(one.Sub(ep.Mul(ep))))
	aynl := ep.Mul(argpp.Sin()).Add(lptemp.Mul(aycof))
	xl := mp.Add(argpp).Add(nodep).Add(lptemp.Mul(xlcof).Mul(axnl))

	// Kepler's equation for the eccentric longitude: bounded Newton loop with
	// the 0.95 rad step clamp and second-order correction of the reference
	// implementation. The convergence break compares real magnitudes only.
	u := xl.Sub(nodep).Mod(twoPi)
	eo1 := u
	var sineo1, coseo1 T
	tem5 := 9999.9
	for ktr := 1; ktr <= 10 && math.Abs(tem5) >= 1e-12; ktr++ {
		sineo1, coseo1 = eo1.SinCos()
		fdot := one.Sub(coseo1.Mul(axnl)).Sub(sineo1.Mul(aynl))
		f := u.Sub(aynl.Mul(coseo1)).Add(axnl.Mul(sineo1)).Sub(eo1)
		step := f.Div(fdot)
		step = f.Div(fdot.Add(axnl.Mul(sineo1).Sub(aynl.Mul(coseo1)).Mul(step).MulS(0.5)))
		tem5 = step.Float()
		if math.Abs(tem5) >= 0.95 {
			step = one.MulS(math.Copysign(0.95, tem5))
			tem5 = step.Float()
		}
		eo1 = eo1.Add(step)
	}
	sineo1, coseo1 = eo1.SinCos()

	// short period preliminary quantities
	ecose := axnl.Mul(coseo1).Add(aynl.Mul(sineo1))
	esine := axnl.Mul(sineo1).Sub(aynl.Mul(coseo1))
	el2 := axnl.Mul(axnl).Add(aynl.Mul(aynl))
	pl := am.Mul(one.Sub(el2))
	if pl.Float() < 0 {
		return out, &ModelLimitsError{Tsince: t, Reason: ReasonSemiLatusRectum, Value: pl.Float()}
	}
	rl := am.Mul(one.Sub(ecose))
	rdotl := am.Sqrt().Mul(esine).Div(rl)
	rvdotl := pl.Sqrt().Div(rl)
	betal := one.Sub(el2).Sqrt()
	sptemp := esine.Div(one.Add(betal))
	sinu := am.Div(rl).Mul(sineo1.Sub(aynl).Sub(axnl.Mul(sptemp)))
	cosu := am.Div(rl).Mul(coseo1.Sub(axnl).Add(aynl.Mul(sptemp)))
	su := sinu.Atan2(cosu)
	sin2u := cosu.Add(cosu).Mul(sinu)
	cos2u := one.Sub(sinu.Mul(sinu).MulS(2))

	// short period periodics
	temp := one.Div(pl)
	temp1 := temp.MulS(0.5 * j2)
	temp2 := temp1.Mul(temp)
	mrt := rl.Mul(one.Sub(temp2.MulS(1.5).Mul(betal).Mul(x3thm1))).Add(
		temp1.MulS(0.5).Mul(x1mth2).Mul(cos2u))
	su = su.Sub(temp2.MulS(0.25).Mul(x7thm1).Mul(sin2u))
	xnode := nodep.Add(temp2.MulS(1.5).Mul(cosip).Mul(sin2u))
	xinc := xincp.Add(temp2.MulS(1.5).Mul(cosip).Mul(sinip).Mul(cos2u))
	mvt := rdotl.Sub(nm.Mul(temp1).Mul(x1mth2).Mul(sin2u).MulS(1 / xke))
	rvdot := rvdotl.Add(nm.Mul(temp1).Mul(x1mth2.Mul(cos2u).Add(x3thm1.MulS(1.5))).MulS(1 / xke))

	if mrt.Float() < 1 {
		return out, &DecayedError{Tsince: t, Radius: mrt.Float()}
	}

	// orientation vectors and TEME state
	sinsu, cossu := su.SinCos()
	snod, cnod := xnode.SinCos()
	sini, cosi := xinc.SinCos()
	xmx := snod.Neg().Mul(cosi)
	xmy := cnod.Mul(cosi)
	ux := xmx.Mul(sinsu).Add(cnod.Mul(cossu))
	uy := xmy.Mul(sinsu).Add(snod.Mul(cossu))
	uz := sini.Mul(sinsu)
	vx := xmx.Mul(cossu).Sub(cnod.Mul(sinsu))
	vy := xmy.Mul(cossu).Sub(snod.Mul(sinsu))
	vz := sini.Mul(cossu)

	const posUnit = earthRadiusKm * 1000
	velUnit := posUnit * xke / 60
	out.pos[0] = mrt.Mul(ux).MulS(posUnit)
	out.pos[1] = mrt.Mul(uy).MulS(posUnit)
	out.pos[2] = mrt.Mul(uz).MulS(posUnit)
	out.vel[0] = mvt.Mul(ux).Add(rvdot.Mul(vx)).MulS(velUnit)
	out.vel[1] = mvt.Mul(uy).Add(rvdot.Mul(vy)).MulS(velUnit)
	out.vel[2] = mvt.Mul(uz).Add(rvdot.Mul(vz)).MulS(velUnit)
	return out, nil
}
